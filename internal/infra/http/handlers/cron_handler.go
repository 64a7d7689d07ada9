package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/http/middleware"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type TickRunner interface {
	RunTick(ctx context.Context, now time.Time) (*usecase.TickResult, error)
}

type StaleReclaimer interface {
	Execute(ctx context.Context, now time.Time) ([]entity.Reclaimed, error)
}

// CronHandler exposes the scheduler and the watchdog to an external clock.
type CronHandler struct {
	Dispatcher TickRunner
	Reclaimer  StaleReclaimer
	Secret     string
	Logger     zerolog.Logger
	Now        func() time.Time
}

func NewCronHandler(dispatcher TickRunner, reclaimer StaleReclaimer, secret string, logger zerolog.Logger) *CronHandler {
	return &CronHandler{
		Dispatcher: dispatcher,
		Reclaimer:  reclaimer,
		Secret:     secret,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Authorize rejects requests without the shared bearer secret. An empty
// secret rejects everything.
func (h *CronHandler) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || h.Secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.Secret)) != 1 {
			writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleDispatch (POST /cron/dispatch)
func (h *CronHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dispatcher.RunTick(r.Context(), h.Now())
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	middleware.ObserveTick(res)
	writeJSON(w, http.StatusOK, res)
}

// HandleReclaim (POST /cron/reclaim)
func (h *CronHandler) HandleReclaim(w http.ResponseWriter, r *http.Request) {
	reclaimed, err := h.Reclaimer.Execute(r.Context(), h.Now())
	if err != nil {
		writeUseCaseError(w, h.Logger, err)
		return
	}
	for _, c := range reclaimed {
		middleware.RecordReclaimed(string(c.Status))
	}
	if reclaimed == nil {
		reclaimed = []entity.Reclaimed{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reclaimed": reclaimed})
}
