package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunTick(context.Context, time.Time) (*usecase.TickResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	n := 3
	return &usecase.TickResult{Processed: 1, Results: []usecase.CampaignResult{{ID: "c1", Status: "sent", RecipientCount: &n}}}, nil
}

type countingReclaimer struct {
	calls atomic.Int32
}

func (r *countingReclaimer) Execute(context.Context, time.Time) ([]entity.Reclaimed, error) {
	r.calls.Add(1)
	return []entity.Reclaimed{{ID: "c1", Status: entity.StatusScheduled, Attempts: 1}}, nil
}

func TestDispatchWorker_TicksUntilCanceled(t *testing.T) {
	runner := &countingRunner{}
	w := NewDispatchWorker(runner, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDispatchWorker_SurvivesTickErrors(t *testing.T) {
	runner := &countingRunner{err: errors.New("db down")}
	w := NewDispatchWorker(runner, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestStaleProcessingWorker(t *testing.T) {
	rec := &countingReclaimer{}
	w := NewStaleProcessingWorker(rec, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}
