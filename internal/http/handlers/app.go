package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/auth"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
	"server/internal/metrics"
	"server/internal/middleware"
	"server/internal/tryon"
)

// App bundles the collaborators the HTTP handlers need.
type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Sessions *auth.Manager
	TryOn    *tryon.Orchestrator
	Ledger   *ledger.Ledger
	Profiles domain.ProfileStore
	Garments domain.GarmentStore
	Metrics  *metrics.Metrics
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the error payload, swapping in a translated message when one
// exists for the request's locale. The English text lives at the call site.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if r != nil {
		if translated := localizeError(middleware.LocaleFromContext(r.Context()), code); translated != "" {
			message = translated
		}
	}
	a.json(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
