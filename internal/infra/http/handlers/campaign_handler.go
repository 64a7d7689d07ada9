package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type CampaignCreator interface {
	Execute(ctx context.Context, input usecase.CreateCampaignInput) (*usecase.CreateCampaignOutput, error)
}

type CampaignManager interface {
	Get(ctx context.Context, tenantID, id string) (*entity.Campaign, error)
	Replies(ctx context.Context, tenantID, id string) ([]*entity.Reply, error)
	Retry(ctx context.Context, tenantID, id string) (*entity.Campaign, error)
}

// CampaignHandler serves the author-facing campaign routes. The tribe comes
// from the path and scopes every lookup.
type CampaignHandler struct {
	Create CampaignCreator
	Manage CampaignManager
	Logger zerolog.Logger
}

func NewCampaignHandler(create CampaignCreator, manage CampaignManager, logger zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{Create: create, Manage: manage, Logger: logger}
}

// HandleCreate (POST /tenants/{tenantID}/campaigns)
func (h *CampaignHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateCampaignInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}
	input.TenantID = chi.URLParam(r, "tenantID")

	out, err := h.Create.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleGet (GET /tenants/{tenantID}/campaigns/{id})
func (h *CampaignHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.Manage.Get(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleReplies (GET /tenants/{tenantID}/campaigns/{id}/replies)
func (h *CampaignHandler) HandleReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.Manage.Replies(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

// HandleRetry (POST /tenants/{tenantID}/campaigns/{id}/retry)
func (h *CampaignHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	c, err := h.Manage.Retry(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
