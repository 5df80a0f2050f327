package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scopeworks/kbingest/internal/config"
)

// NewScheduler builds the periodic scan scheduler. Returns nil when the scan
// interval is zero (periodic scanning disabled).
func NewScheduler(cfg config.RedisConfig, interval time.Duration) (*asynq.Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		&asynq.SchedulerOpts{},
	)

	payload, err := json.Marshal(ScanRunPayload{TriggeredBy: "scheduler"})
	if err != nil {
		return nil, fmt.Errorf("marshal scan payload: %w", err)
	}

	_, err = scheduler.Register(
		fmt.Sprintf("@every %s", interval),
		asynq.NewTask(TypeScanRun, payload),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Hour),
		asynq.Unique(10*time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("register periodic scan: %w", err)
	}

	return scheduler, nil
}
