package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/http/middleware"
)

type StaleReclaimer interface {
	Execute(ctx context.Context, now time.Time) ([]entity.Reclaimed, error)
}

type StaleProcessingWorker struct {
	reclaimer    StaleReclaimer
	tickInterval time.Duration
	logger       zerolog.Logger
}

func NewStaleProcessingWorker(reclaimer StaleReclaimer, interval time.Duration, logger zerolog.Logger) *StaleProcessingWorker {
	return &StaleProcessingWorker{
		reclaimer:    reclaimer,
		tickInterval: interval,
		logger:       logger.With().Str("worker", "stale_processing").Logger(),
	}
}

func (w *StaleProcessingWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.tickInterval).Msg("stale processing worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("stale processing worker stopped")
			return
		case <-ticker.C:
			w.reclaim(ctx)
		}
	}
}

func (w *StaleProcessingWorker) reclaim(ctx context.Context) {
	reclaimed, err := w.reclaimer.Execute(ctx, time.Now())
	if err != nil {
		w.logger.Error().Err(err).Msg("reclaim stale campaigns failed")
		return
	}
	for _, r := range reclaimed {
		middleware.RecordReclaimed(string(r.Status))
	}
}
