package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

var pixelGIF, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

type OpenRecorder interface {
	RecordOpen(ctx context.Context, id string) error
}

type TrackingHandler struct {
	Opens  OpenRecorder
	Logger zerolog.Logger
}

func NewTrackingHandler(opens OpenRecorder, logger zerolog.Logger) *TrackingHandler {
	return &TrackingHandler{Opens: opens, Logger: logger}
}

// HandlePixel (GET /api/track/{campaignID}/pixel.gif) always answers with
// the image; counting is best effort.
func (h *TrackingHandler) HandlePixel(w http.ResponseWriter, r *http.Request) {
	if id := chi.URLParam(r, "campaignID"); id != "" {
		if err := h.Opens.RecordOpen(r.Context(), id); err != nil {
			h.Logger.Warn().Err(err).Str("campaign_id", id).Msg("record open failed")
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", strconv.Itoa(len(pixelGIF)))
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}
