package mail

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/matcreates/tribe-sub001/internal/entity"
)

const defaultConcurrency = 5

type BulkSender struct {
	Transport     Transport
	FromAddress   string
	InboundDomain string
	Concurrency   int
	Logger        zerolog.Logger
}

func NewBulkSender(transport Transport, fromAddress, inboundDomain string, concurrency int, logger zerolog.Logger) *BulkSender {
	return &BulkSender{
		Transport:     transport,
		FromAddress:   fromAddress,
		InboundDomain: inboundDomain,
		Concurrency:   concurrency,
		Logger:        logger,
	}
}

// SendBulk delivers one personalized copy per distinct recipient. A failed
// recipient is recorded in Errors and never stops the others. The returned
// error is only set when ctx ends; the result still holds what was sent.
func (s *BulkSender) SendBulk(ctx context.Context, in BulkInput) (*BulkResult, error) {
	res := &BulkResult{}
	var mu sync.Mutex

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)

	seen := make(map[string]struct{}, len(in.Recipients))
	for _, r := range in.Recipients {
		key := entity.NormalizeEmail(r.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		r := r
		g.Go(func() error {
			id, err := s.deliverOne(ctx, in, r)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, entity.SendFailure{Email: r.Email, Reason: err.Error()})
				return nil
			}
			res.SentCount++
			res.Delivered = append(res.Delivered, entity.Delivery{Email: key, DeliveryID: id})
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Errors) > 0 {
		s.Logger.Warn().
			Str("campaign_id", in.CampaignID).
			Int("sent", res.SentCount).
			Int("failed", len(res.Errors)).
			Msg("batch finished with failures")
	}

	return res, ctx.Err()
}

func (s *BulkSender) deliverOne(ctx context.Context, in BulkInput, r entity.Recipient) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	links := recipientLinks{
		unsubscribe: UnsubscribeURL(in.BaseURL, r.UnsubscribeToken),
		pixel:       PixelURL(in.BaseURL, in.CampaignID),
	}

	html, err := personalizeHTML(in, links)
	if err != nil {
		return "", err
	}

	env := Envelope{
		FromName:  in.SenderName,
		From:      s.FromAddress,
		To:        r.Email,
		Subject:   in.Subject,
		HTML:      html,
		Text:      personalizeText(in, links),
		MessageID: entity.MessageID(in.CampaignID, uuid.New().String(), s.InboundDomain),
		Headers: map[string]string{
			"List-Unsubscribe":      "<" + links.unsubscribe + ">",
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
	}
	if in.AllowReplies {
		env.ReplyTo = entity.ReplyAddress(in.CampaignID, s.InboundDomain)
	}

	return s.Transport.Deliver(ctx, env)
}
