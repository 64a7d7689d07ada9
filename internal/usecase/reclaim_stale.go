package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

// ReclaimStaleUseCase is the watchdog for campaigns whose dispatcher died
// after the claim. Stuck campaigns go back to scheduled until they run out
// of attempts, then to error.
type ReclaimStaleUseCase struct {
	Campaigns   entity.CampaignRepositoryInterface
	StaleAfter  time.Duration
	MaxAttempts int
	Logger      zerolog.Logger
}

func NewReclaimStaleUseCase(campaigns entity.CampaignRepositoryInterface, staleAfter time.Duration, maxAttempts int, logger zerolog.Logger) *ReclaimStaleUseCase {
	return &ReclaimStaleUseCase{
		Campaigns:   campaigns,
		StaleAfter:  staleAfter,
		MaxAttempts: maxAttempts,
		Logger:      logger,
	}
}

func (uc *ReclaimStaleUseCase) Execute(ctx context.Context, now time.Time) ([]entity.Reclaimed, error) {
	reclaimed, err := uc.Campaigns.ReclaimStale(ctx, now.Add(-uc.StaleAfter), uc.MaxAttempts)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "reclaim stale campaigns", Err: err}
	}

	for _, r := range reclaimed {
		ev := uc.Logger.Warn()
		if r.Status == entity.StatusError {
			ev = uc.Logger.Error()
		}
		ev.Str("campaign_id", r.ID).
			Str("status", string(r.Status)).
			Int("attempts", r.Attempts).
			Msg("reclaimed campaign stuck in processing")
	}
	return reclaimed, nil
}
