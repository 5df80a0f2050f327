package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scopeworks/kbingest/internal/config"
)

// ErrScanQueued signals that a scan task is already waiting or running; the
// trigger was deduplicated rather than enqueued twice.
var ErrScanQueued = errors.New("scan task already queued")

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueScanRun queues one scan. The uniqueness window deduplicates rapid
// triggers; the pipeline's own scan claim is the real mutual exclusion.
func (c *Client) EnqueueScanRun(payload ScanRunPayload) error {
	err := c.enqueue(TypeScanRun, payload,
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Hour),
		asynq.Unique(10*time.Minute),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrScanQueued
	}
	return err
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return err
		}
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
