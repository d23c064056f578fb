package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JaimeStill/auditor/internal/jobs"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second
	max := 5 * time.Minute

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{64, 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := jobs.Backoff(tt.attempt, base, max); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 100; attempt++ {
		d := jobs.Backoff(attempt, time.Second, time.Minute)
		if d < prev || d > time.Minute {
			t.Fatalf("Backoff(%d) = %v after %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  jobs.Job
		want error
	}{
		{"verify", jobs.Job{Kind: jobs.KindVerify, Recording: "1"}, nil},
		{"verify without recording", jobs.Job{Kind: jobs.KindVerify}, jobs.ErrInvalidJob},
		{"verify all", jobs.Job{Kind: jobs.KindVerifyAll}, nil},
		{"unknown", jobs.Job{Kind: "purge"}, jobs.ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.job.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInlineDispatches(t *testing.T) {
	inline := jobs.NewInline(discard())

	var got []jobs.Job
	inline.Register(jobs.KindVerify, jobs.HandlerFunc(func(_ context.Context, j jobs.Job) error {
		got = append(got, j)
		return nil
	}))

	if err := inline.Enqueue(context.Background(), jobs.Job{Kind: jobs.KindVerify, Recording: "42"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if len(got) != 1 || got[0].Recording != "42" {
		t.Fatalf("handled = %+v", got)
	}
	if got[0].EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt should be stamped")
	}
}

func TestInlineReturnsHandlerError(t *testing.T) {
	inline := jobs.NewInline(discard())
	boom := errors.New("boom")
	inline.Register(jobs.KindVerifyAll, jobs.HandlerFunc(func(context.Context, jobs.Job) error {
		return boom
	}))

	if err := inline.Enqueue(context.Background(), jobs.Job{Kind: jobs.KindVerifyAll}); !errors.Is(err, boom) {
		t.Errorf("Enqueue() = %v, want boom", err)
	}
}

func TestInlineRejectsUnregisteredAndInvalid(t *testing.T) {
	inline := jobs.NewInline(discard())

	if err := inline.Enqueue(context.Background(), jobs.Job{Kind: jobs.KindVerifyAll}); !errors.Is(err, jobs.ErrUnknownKind) {
		t.Errorf("unregistered kind = %v, want ErrUnknownKind", err)
	}
	if err := inline.Enqueue(context.Background(), jobs.Job{Kind: jobs.KindVerify}); !errors.Is(err, jobs.ErrInvalidJob) {
		t.Errorf("missing recording = %v, want ErrInvalidJob", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	var cfg jobs.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Workers != 4 || cfg.MaxAttempts != 5 {
		t.Errorf("workers/attempts = %d/%d", cfg.Workers, cfg.MaxAttempts)
	}
	if cfg.BaseBackoffDuration() != 2*time.Second || cfg.MaxBackoffDuration() != 5*time.Minute {
		t.Errorf("backoff = %v..%v", cfg.BaseBackoffDuration(), cfg.MaxBackoffDuration())
	}

	t.Setenv("TEST_JOB_WORKERS", "12")
	cfg = jobs.Config{}
	if err := cfg.Finalize(&jobs.Env{Workers: "TEST_JOB_WORKERS"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Workers)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  jobs.Config
	}{
		{"negative workers", jobs.Config{Workers: -1}},
		{"bad duration", jobs.Config{PollInterval: "often"}},
		{"base above max", jobs.Config{BaseBackoff: "10m", MaxBackoff: "1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() should fail")
			}
		})
	}
}
