package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/infra/http/middleware"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type TickRunner interface {
	RunTick(ctx context.Context, now time.Time) (*usecase.TickResult, error)
}

// DispatchWorker is the in-process clock for the scheduler. Overlapping
// ticks from another instance or from /cron/dispatch are safe because
// claims are atomic.
type DispatchWorker struct {
	runner       TickRunner
	tickInterval time.Duration
	logger       zerolog.Logger
}

func NewDispatchWorker(runner TickRunner, interval time.Duration, logger zerolog.Logger) *DispatchWorker {
	return &DispatchWorker{
		runner:       runner,
		tickInterval: interval,
		logger:       logger.With().Str("worker", "dispatch").Logger(),
	}
}

func (w *DispatchWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.tickInterval).Msg("dispatch worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("dispatch worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *DispatchWorker) tick(ctx context.Context) {
	res, err := w.runner.RunTick(ctx, time.Now())
	if err != nil {
		w.logger.Error().Err(err).Msg("dispatch tick failed")
		return
	}
	middleware.ObserveTick(res)
}
