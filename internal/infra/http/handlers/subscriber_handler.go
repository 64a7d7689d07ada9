package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type Joiner interface {
	Execute(ctx context.Context, input usecase.JoinTribeInput) (*usecase.JoinTribeOutput, error)
}

type SubscriberVerifier interface {
	Execute(ctx context.Context, token string) (*usecase.VerifySubscriberOutput, error)
}

type Unsubscriber interface {
	Execute(ctx context.Context, token string) error
}

type SubscriberHandler struct {
	Join        Joiner
	Verify      SubscriberVerifier
	Unsubscribe Unsubscriber
	Logger      zerolog.Logger
}

func NewSubscriberHandler(join Joiner, verify SubscriberVerifier, unsubscribe Unsubscriber, logger zerolog.Logger) *SubscriberHandler {
	return &SubscriberHandler{
		Join:        join,
		Verify:      verify,
		Unsubscribe: unsubscribe,
		Logger:      logger,
	}
}

// HandleJoin (POST /api/join)
func (h *SubscriberHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var input usecase.JoinTribeInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	out, err := h.Join.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleVerify (GET /api/verify?token=)
func (h *SubscriberHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	out, err := h.Verify.Execute(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "verified",
		"tribe_slug": out.TenantSlug,
		"email":      out.Email,
	})
}

// HandleUnsubscribe serves both the link in the footer (GET) and the
// List-Unsubscribe-Post one-click request (POST).
func (h *SubscriberHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.Unsubscribe.Execute(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
