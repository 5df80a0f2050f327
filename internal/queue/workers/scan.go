package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/scopeworks/kbingest/internal/ingest"
	"github.com/scopeworks/kbingest/internal/queue"
)

type ScanWorker struct {
	pipeline *ingest.Pipeline
}

func NewScanWorker(pipeline *ingest.Pipeline) *ScanWorker {
	return &ScanWorker{pipeline: pipeline}
}

func (w *ScanWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ScanRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("running scan task", "triggered_by", payload.TriggeredBy)

	scan, err := w.pipeline.Scan(ctx)
	if errors.Is(err, ingest.ErrScanInProgress) {
		// Another scan beat us to the claim; nothing to retry.
		slog.Info("scan already running, task dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	slog.Info("scan task completed",
		"scan_id", scan.ID,
		"scanned", scan.Stats.Scanned,
		"new", scan.Stats.New,
		"updated", scan.Stats.Updated,
		"failed", scan.Stats.Failed,
		"pending_approval", scan.Stats.PendingApproval)
	return nil
}
