// Package api exposes the read API and the operational counters over HTTP
// for the presentation layer and for health checks.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"marketpulse/internal/entitlement"
	"marketpulse/internal/marketdata"
	"marketpulse/internal/scheduler"
)

// UserSource resolves a caller id to its entitlement view. A nil user with
// a nil error means the caller has no record.
type UserSource interface {
	User(ctx context.Context, id int64) (*entitlement.User, error)
}

type handlers struct {
	svc    *marketdata.Service
	gate   *entitlement.Gate
	users  UserSource
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

// NewRouter builds the HTTP router. All market routes pass the entitlement
// gate; a denial renders 403 with the typed reason, never an internal error.
func NewRouter(svc *marketdata.Service, gate *entitlement.Gate, users UserSource, sched *scheduler.Scheduler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, gate: gate, users: users, sched: sched, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/status", h.status)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/prices", h.allPrices)
		r.Get("/prices/gold", h.goldPrices)
		r.Get("/prices/currency", h.currencyPrices)
		r.Get("/prices/crypto", h.cryptoPrices)
		r.Get("/news", h.news)
	})

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.Stats())
}

func (h *handlers) allPrices(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, entitlement.RequirementSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetAllPrices(r.Context()))
}

func (h *handlers) goldPrices(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, entitlement.RequirementSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetGoldPrices(r.Context()))
}

func (h *handlers) currencyPrices(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, entitlement.RequirementSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetCurrencyPrices(r.Context()))
}

func (h *handlers) cryptoPrices(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, entitlement.RequirementSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetCryptoPrices(r.Context(), queryInt(r, "limit")))
}

func (h *handlers) news(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, entitlement.RequirementSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.GetLatestNews(r.Context(), queryInt(r, "limit")))
}

// authorize resolves the caller from the X-User-ID header and runs the
// gate. It writes the denial response itself and reports whether the
// handler may proceed.
func (h *handlers) authorize(w http.ResponseWriter, r *http.Request, req entitlement.Requirement) bool {
	var user *entitlement.User
	if id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64); err == nil {
		user, err = h.users.User(r.Context(), id)
		if err != nil {
			h.logger.Error("user lookup failed", "user_id", id, "error", err)
			user = nil
		}
	}

	decision := h.gate.Authorize(r.Context(), user, req)
	if !decision.Allowed {
		writeJSON(w, http.StatusForbidden, decision)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
