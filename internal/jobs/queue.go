package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/auditor/pkg/lifecycle"
)

// Queue delivers jobs through Redis. Ready jobs live in a list consumed with
// BRPOP; failed jobs wait in a sorted set scored by their due time and move
// to the dead-letter list once MaxAttempts deliveries have failed.
type Queue struct {
	Registry
	rdb    redis.Cmdable
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Stats reports queue depths.
type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

// NewQueue creates a Redis-backed queue. Handlers must be registered before Start.
func NewQueue(rdb redis.Cmdable, cfg Config, logger *slog.Logger) *Queue {
	return &Queue{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.With("system", "jobs", "scheduler", "redis"),
		now:    time.Now,
	}
}

func (q *Queue) readyKey() string   { return q.cfg.KeyPrefix + ":ready" }
func (q *Queue) delayedKey() string { return q.cfg.KeyPrefix + ":delayed" }
func (q *Queue) deadKey() string    { return q.cfg.KeyPrefix + ":dead" }

// Enqueue validates the job and pushes it onto the ready list.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.readyKey(), payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Debug("job enqueued", "id", job.ID, "kind", job.Kind, "recording", job.Recording)
	return nil
}

// Start launches the worker pool and the delayed-job promoter as lifecycle
// background loops.
func (q *Queue) Start(lc *lifecycle.Coordinator) error {
	q.logger.Info("starting job queue", "workers", q.cfg.Workers)

	for i := range q.cfg.Workers {
		lc.Go(func(ctx context.Context) { q.work(ctx, i) })
	}
	lc.Go(q.promote)

	return nil
}

func (q *Queue) work(ctx context.Context, worker int) {
	logger := q.logger.With("worker", worker)

	for ctx.Err() == nil {
		res, err := q.rdb.BRPop(ctx, q.cfg.PollIntervalDuration(), q.readyKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error("dequeue failed", "error", err)
			sleep(ctx, q.cfg.PollIntervalDuration())
			continue
		}
		if len(res) < 2 {
			continue
		}

		q.process(ctx, res[1])
	}
}

// process decodes and dispatches one payload, scheduling a retry or dead
// letter on failure.
func (q *Queue) process(ctx context.Context, payload string) {
	// Failures are recorded even after shutdown has cancelled ctx.
	record := context.WithoutCancel(ctx)

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		q.logger.Error("discarding undecodable job", "error", err)
		if err := q.rdb.LPush(record, q.deadKey(), payload).Err(); err != nil {
			q.logger.Error("dead-letter failed", "error", err)
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeoutDuration())
	err := q.Dispatch(jobCtx, job)
	cancel()

	if err == nil {
		q.logger.Info("job completed", "id", job.ID, "kind", job.Kind, "recording", job.Recording)
		return
	}

	if err := q.fail(record, job, err); err != nil {
		q.logger.Error("job failure not recorded", "id", job.ID, "error", err)
	}
}

func (q *Queue) fail(ctx context.Context, job Job, cause error) error {
	job.Attempt++
	job.LastError = cause.Error()

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if job.Attempt >= q.cfg.MaxAttempts || errors.Is(cause, ErrUnknownKind) {
		q.logger.Error("job dead-lettered",
			"id", job.ID, "kind", job.Kind, "recording", job.Recording,
			"attempts", job.Attempt, "error", cause)
		return q.rdb.LPush(ctx, q.deadKey(), payload).Err()
	}

	delay := Backoff(job.Attempt, q.cfg.BaseBackoffDuration(), q.cfg.MaxBackoffDuration())
	due := q.now().Add(delay)

	q.logger.Warn("job failed, retrying",
		"id", job.ID, "kind", job.Kind, "recording", job.Recording,
		"attempt", job.Attempt, "delay", delay, "error", cause)

	return q.rdb.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: payload,
	}).Err()
}

func (q *Queue) promote(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.PollIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error("promote delayed jobs failed", "error", err)
			}
		}
	}
}

// PromoteDue moves delayed jobs whose due time has passed onto the ready
// list. Only the caller that removes a member from the delayed set pushes
// it, so concurrent promoters never duplicate a job.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	members, err := q.rdb.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.delayedKey(), m).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.readyKey(), m).Err(); err != nil {
			return moved, err
		}
		moved++
	}

	return moved, nil
}

// Stats returns the ready, delayed, and dead-letter depths.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	pipe := q.rdb.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return s, fmt.Errorf("queue stats: %w", err)
	}

	s.Ready = ready.Val()
	s.Delayed = delayed.Val()
	s.Dead = dead.Val()
	return s, nil
}

// DeadLetters returns up to limit dead-lettered jobs, newest first.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]Job, error) {
	raw, err := q.rdb.LRange(ctx, q.deadKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}

	out := make([]Job, 0, len(raw))
	for _, r := range raw {
		var j Job
		if err := json.Unmarshal([]byte(r), &j); err != nil {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
