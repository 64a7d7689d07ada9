package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/infra/integration/resend"
	"github.com/matcreates/tribe-sub001/internal/infra/queue"
)

// WebhookVerifier checks the provider signature over the raw body.
// *svix.Webhook satisfies it.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

type InboundFetcher interface {
	FetchReceived(ctx context.Context, id string) (*resend.ReceivedEmail, error)
}

// InboundWebhookHandler accepts inbound mail notifications, completes them
// with the message content and queues them for the reply correlator.
type InboundWebhookHandler struct {
	Verifier WebhookVerifier
	Fetcher  InboundFetcher
	Producer queue.InboundPublisherInterface
	Logger   zerolog.Logger
}

func NewInboundWebhookHandler(
	verifier WebhookVerifier,
	fetcher InboundFetcher,
	producer queue.InboundPublisherInterface,
	logger zerolog.Logger,
) *InboundWebhookHandler {
	return &InboundWebhookHandler{
		Verifier: verifier,
		Fetcher:  fetcher,
		Producer: producer,
		Logger:   logger,
	}
}

// Handle (POST /api/webhook-inbound). Non-2xx answers make the provider
// retry, so only failures worth retrying return one.
func (h *InboundWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_BODY", "could not read body")
		return
	}

	if err := h.Verifier.Verify(body, r.Header); err != nil {
		h.Logger.Warn().Err(err).Msg("inbound webhook signature rejected")
		writeErrorResponse(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid signature")
		return
	}

	var ev resend.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	if ev.Type != resend.EventEmailReceived {
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	var full *resend.ReceivedEmail
	if ev.Data.EmailID != "" {
		full, err = h.Fetcher.FetchReceived(r.Context(), ev.Data.EmailID)
		if err != nil {
			h.Logger.Error().Err(err).Str("email_id", ev.Data.EmailID).Msg("fetch inbound content failed")
			writeErrorResponse(w, http.StatusBadGateway, "FETCH_FAILED", "could not load message content")
			return
		}
	}

	inbound := resend.ToInboundEvent(ev, full)
	if err := h.Producer.PublishInbound(r.Context(), inbound); err != nil {
		h.Logger.Error().Err(err).Str("email_id", ev.Data.EmailID).Msg("queue inbound event failed")
		writeErrorResponse(w, http.StatusInternalServerError, "QUEUE_ERROR", "could not queue message")
		return
	}

	h.Logger.Debug().Str("email_id", ev.Data.EmailID).Msg("inbound event queued")
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
