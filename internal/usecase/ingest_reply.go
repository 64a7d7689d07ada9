package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/htmltext"
)

const (
	ReasonNoReference     = "no campaign reference"
	ReasonUnknownCampaign = "unknown campaign"
	ReasonRepliesDisabled = "replies disabled"
	ReasonNoSender        = "missing sender"
)

// IngestReplyUseCase ties an inbound message to the campaign it answers.
// Identity comes only from the reply address and the threading headers.
type IngestReplyUseCase struct {
	Campaigns     entity.CampaignRepositoryInterface
	Replies       entity.ReplyRepositoryInterface
	InboundDomain string
	Logger        zerolog.Logger
	Now           func() time.Time
}

func NewIngestReplyUseCase(
	campaigns entity.CampaignRepositoryInterface,
	replies entity.ReplyRepositoryInterface,
	inboundDomain string,
	logger zerolog.Logger,
) *IngestReplyUseCase {
	return &IngestReplyUseCase{
		Campaigns:     campaigns,
		Replies:       replies,
		InboundDomain: inboundDomain,
		Logger:        logger,
		Now:           time.Now,
	}
}

// Execute returns the stored reply, or nil when the event could not be
// matched. Unmatched events are kept for diagnostics and are not an error.
func (uc *IngestReplyUseCase) Execute(ctx context.Context, ev entity.InboundEvent) (*entity.Reply, error) {
	campaignID := uc.correlate(ev)
	if campaignID == "" {
		return nil, uc.unmatched(ctx, ev, ReasonNoReference)
	}

	campaign, err := uc.Campaigns.Get(ctx, campaignID)
	if errors.Is(err, entity.ErrCampaignNotFound) {
		return nil, uc.unmatched(ctx, ev, ReasonUnknownCampaign)
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "load campaign for reply", Err: err}
	}
	if !campaign.AllowReplies {
		return nil, uc.unmatched(ctx, ev, ReasonRepliesDisabled)
	}

	sender := senderAddress(ev.From)
	if sender == "" {
		return nil, uc.unmatched(ctx, ev, ReasonNoSender)
	}

	body := ev.Text
	if strings.TrimSpace(body) == "" {
		body = htmltext.FromHTML(ev.HTML)
	}

	received := ev.ReceivedAt
	if received.IsZero() {
		received = uc.Now()
	}

	reply := &entity.Reply{
		ID:              uuid.New().String(),
		CampaignID:      campaign.ID,
		SubscriberEmail: sender,
		Text:            CleanReplyText(body),
		ReceivedAt:      received,
	}
	if err := uc.Replies.Append(ctx, reply); err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "store reply", Err: err}
	}

	uc.Logger.Info().
		Str("campaign_id", campaign.ID).
		Str("from", sender).
		Int("length", len(reply.Text)).
		Msg("reply stored")
	return reply, nil
}

// correlate looks at the reply mailbox first, then at the threading
// headers that point back to a Message-ID we minted.
func (uc *IngestReplyUseCase) correlate(ev entity.InboundEvent) string {
	for _, to := range ev.To {
		if id := entity.CampaignIDFromAddress(senderAddress(to), uc.InboundDomain); id != "" {
			return id
		}
	}

	refs := append([]string{ev.InReplyTo}, ev.References...)
	for _, ref := range refs {
		for _, id := range strings.Fields(ref) {
			if cid := entity.CampaignIDFromMessageID(id); cid != "" {
				return cid
			}
		}
	}
	return ""
}

func (uc *IngestReplyUseCase) unmatched(ctx context.Context, ev entity.InboundEvent, reason string) error {
	uc.Logger.Warn().
		Str("provider_id", ev.ProviderID).
		Str("reason", reason).
		Strs("to", ev.To).
		Msg("inbound reply not matched")

	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = uc.Now()
	}
	if err := uc.Replies.RecordUnmatched(ctx, ev, reason); err != nil {
		return &TechnicalError{Code: CodeDatabase, Message: "record unmatched reply", Err: err}
	}
	return nil
}

func senderAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return entity.NormalizeEmail(addr.Address)
	}
	if strings.Contains(raw, "@") {
		return entity.NormalizeEmail(strings.Trim(raw, "<>"))
	}
	return ""
}
