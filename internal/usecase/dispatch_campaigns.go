package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/mail"
)

type DispatchConfig struct {
	BaseURL    string
	ClaimLimit int
	BatchSize  int
}

type DispatchCampaignsUseCase struct {
	Campaigns  entity.CampaignRepositoryInterface
	Tenants    entity.TenantRepositoryInterface
	Deliveries entity.DeliveryRepositoryInterface
	Resolver   RecipientResolver
	Sender     BulkSender
	Config     DispatchConfig
	Logger     zerolog.Logger
	Now        func() time.Time
}

func NewDispatchCampaignsUseCase(
	campaigns entity.CampaignRepositoryInterface,
	tenants entity.TenantRepositoryInterface,
	deliveries entity.DeliveryRepositoryInterface,
	resolver RecipientResolver,
	sender BulkSender,
	cfg DispatchConfig,
	logger zerolog.Logger,
) *DispatchCampaignsUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 25
	}
	return &DispatchCampaignsUseCase{
		Campaigns:  campaigns,
		Tenants:    tenants,
		Deliveries: deliveries,
		Resolver:   resolver,
		Sender:     sender,
		Config:     cfg,
		Logger:     logger,
		Now:        time.Now,
	}
}

// RunTick claims every campaign due at now and runs them one after the
// other. A failing campaign is recorded in the result and never stops the
// rest of the tick.
func (uc *DispatchCampaignsUseCase) RunTick(ctx context.Context, now time.Time) (*TickResult, error) {
	claimed, err := uc.Campaigns.ClaimDue(ctx, now, uc.Config.ClaimLimit)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "claim due campaigns", Err: err}
	}

	// A claimed campaign runs to completion even if the caller goes away.
	runCtx := context.WithoutCancel(ctx)
	result := &TickResult{Processed: len(claimed), Results: make([]CampaignResult, 0, len(claimed))}
	for _, c := range claimed {
		result.Results = append(result.Results, uc.process(runCtx, c))
	}

	if len(claimed) > 0 {
		uc.Logger.Info().Int("processed", result.Processed).Msg("dispatch tick finished")
	}
	return result, nil
}

// DispatchNow claims one scheduled campaign regardless of its due time and
// processes it inline.
func (uc *DispatchCampaignsUseCase) DispatchNow(ctx context.Context, campaignID string) (*CampaignResult, error) {
	c, err := uc.Campaigns.ClaimByID(ctx, campaignID, uc.Now())
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "claim campaign " + campaignID, Err: err}
	}
	if c == nil {
		return nil, &DomainError{Code: CodeNotClaimable, Message: "campaign is not waiting to be sent"}
	}

	res := uc.process(context.WithoutCancel(ctx), c)
	return &res, nil
}

func (uc *DispatchCampaignsUseCase) process(ctx context.Context, c *entity.Campaign) (res CampaignResult) {
	log := uc.Logger.With().Str("campaign_id", c.ID).Str("tribe_id", c.TenantID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("campaign dispatch panicked")
			res = uc.finish(ctx, log, c, entity.Outcome{
				Status: entity.StatusError,
				Error:  "internal error while sending",
			})
		}
	}()

	tenant, err := uc.Tenants.FindByID(ctx, c.TenantID)
	if errors.Is(err, entity.ErrTenantNotFound) {
		log.Warn().Msg("tribe not found, skipping campaign")
		res = uc.finish(ctx, log, c, entity.Outcome{Status: entity.StatusError, Error: "tribe not found"})
		res.Status = StatusSkipped
		return res
	}
	if err != nil {
		return uc.fail(ctx, log, c, fmt.Errorf("load tribe: %w", err))
	}

	recipients, err := uc.Resolver.Resolve(ctx, c.TenantID, c.Filter)
	if err != nil {
		return uc.fail(ctx, log, c, err)
	}

	delivered, err := uc.Deliveries.DeliveredEmails(ctx, c.ID)
	if err != nil {
		return uc.fail(ctx, log, c, fmt.Errorf("load delivery log: %w", err))
	}

	pending := pendingRecipients(recipients, delivered)
	if len(pending) == 0 {
		log.Info().Int("already_delivered", len(delivered)).Msg("no pending recipients")
		return uc.finish(ctx, log, c, entity.Outcome{
			Status:         entity.StatusSent,
			RecipientCount: len(delivered),
		})
	}

	htmlBody, textBody, err := mail.RenderBody(c.Body)
	if err != nil {
		return uc.fail(ctx, log, c, err)
	}

	in := mail.BulkInput{
		CampaignID:   c.ID,
		Subject:      c.Subject,
		HTMLBody:     htmlBody,
		TextBody:     textBody,
		SenderName:   tenant.SenderName(),
		BaseURL:      uc.Config.BaseURL,
		Signature:    tenant.EmailSignature,
		AllowReplies: c.AllowReplies,
	}

	sent := 0
	var failures []entity.SendFailure
	var stopped error
	for start := 0; start < len(pending); start += uc.Config.BatchSize {
		end := min(start+uc.Config.BatchSize, len(pending))
		in.Recipients = pending[start:end]

		out, sendErr := uc.Sender.SendBulk(ctx, in)
		if out != nil {
			sent += out.SentCount
			failures = append(failures, out.Errors...)
			// Logged per batch so a re-attempt never repeats these.
			if err := uc.Deliveries.RecordDeliveries(ctx, c.ID, out.Delivered); err != nil {
				stopped = fmt.Errorf("record deliveries: %w", err)
				break
			}
		}
		if sendErr != nil {
			stopped = fmt.Errorf("send batch: %w", sendErr)
			break
		}

		if end < len(pending) {
			err := uc.Campaigns.Heartbeat(ctx, c.ID, c.Attempts, uc.Now())
			if errors.Is(err, entity.ErrInvalidTransition) {
				log.Error().Err(err).Int("sent", sent).Msg("claim lost while sending, stopping")
				return CampaignResult{ID: c.ID, Status: string(entity.StatusError), Error: "claim lost"}
			}
			if err != nil {
				log.Warn().Err(err).Msg("renew campaign claim")
			}
		}
	}

	for _, f := range failures {
		log.Warn().Str("email", f.Email).Str("reason", f.Reason).Msg("recipient delivery failed")
	}

	reached := len(delivered) + sent
	if stopped != nil {
		log.Error().Err(stopped).Int("reached", reached).Msg("campaign dispatch stopped early")
		if reached == 0 {
			return uc.fail(ctx, log, c, stopped)
		}
	}

	outcome := entity.Outcome{
		Status:         entity.StatusSent,
		RecipientCount: reached,
		FailedCount:    len(failures),
	}
	switch {
	case stopped != nil:
		outcome.Error = fmt.Sprintf("sending stopped early, %d of %d recipients reached", reached, len(delivered)+len(pending))
	case len(failures) > 0:
		outcome.Error = fmt.Sprintf("%d of %d deliveries failed", len(failures), len(pending))
	}
	if outcome.RecipientCount == 0 && len(failures) > 0 {
		outcome.Status = entity.StatusError
	}

	res = uc.finish(ctx, log, c, outcome)
	res.Failures = failures
	return res
}

// fail marks the campaign as errored. The stored reason is generic; the
// underlying error only goes to the log.
func (uc *DispatchCampaignsUseCase) fail(ctx context.Context, log zerolog.Logger, c *entity.Campaign, cause error) CampaignResult {
	log.Error().Err(cause).Msg("campaign dispatch failed")

	reason := "sending failed"
	var de *DomainError
	if errors.As(cause, &de) {
		reason = de.Message
	}
	return uc.finish(ctx, log, c, entity.Outcome{Status: entity.StatusError, Error: reason})
}

// finish writes the outcome under the claim the campaign was taken with.
func (uc *DispatchCampaignsUseCase) finish(ctx context.Context, log zerolog.Logger, c *entity.Campaign, outcome entity.Outcome) CampaignResult {
	res := CampaignResult{ID: c.ID, Status: string(outcome.Status), Failed: outcome.FailedCount}
	if outcome.Status == entity.StatusSent {
		n := outcome.RecipientCount
		res.RecipientCount = &n
	}
	if outcome.Error != "" {
		res.Error = outcome.Error
	}

	if err := uc.Campaigns.MarkOutcome(context.WithoutCancel(ctx), c.ID, c.Attempts, outcome); err != nil {
		if errors.Is(err, entity.ErrInvalidTransition) {
			log.Error().Err(err).Msg("campaign left processing before its outcome was written")
		} else {
			log.Error().Err(err).Msg("write campaign outcome")
		}
		res.Status = string(entity.StatusError)
		res.RecipientCount = nil
		res.Error = "outcome not recorded"
		return res
	}

	log.Info().
		Str("status", string(outcome.Status)).
		Int("recipients", outcome.RecipientCount).
		Int("failed", outcome.FailedCount).
		Msg("campaign finished")
	return res
}

func pendingRecipients(all []entity.Recipient, delivered []string) []entity.Recipient {
	if len(delivered) == 0 {
		return all
	}
	done := make(map[string]struct{}, len(delivered))
	for _, e := range delivered {
		done[entity.NormalizeEmail(e)] = struct{}{}
	}

	out := make([]entity.Recipient, 0, len(all))
	for _, r := range all {
		if _, ok := done[entity.NormalizeEmail(r.Email)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
