package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/tryon"
	"server/pkg/zip"
)

type tryOnRequest struct {
	SourceImage    string   `json:"source_image"`
	GarmentIDs     []string `json:"garment_ids"`
	MaxWaitSeconds int      `json:"max_wait_seconds"`
}

type lookResponse struct {
	Image            string       `json:"image"`
	Garments         []garmentDTO `json:"garments"`
	RemainingCredits int          `json:"remaining_credits"`
	CreditsCharged   int          `json:"credits_charged"`
}

// TryOnCreate runs one try-on generation for the signed-in user. The result is
// JSON by default; ?format=zip (or Accept: application/zip) bundles the image
// with a manifest for download.
func (a *App) TryOnCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req tryOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	source, err := base64.StdEncoding.DecodeString(req.SourceImage)
	if err != nil || len(source) == 0 {
		a.error(w, r, http.StatusBadRequest, "bad_request", "source_image must be base64 image data")
		return
	}
	if len(req.GarmentIDs) == 0 || len(req.GarmentIDs) > domain.MaxSelections {
		a.error(w, r, http.StatusBadRequest, "invalid_selection", fmt.Sprintf("pick between 1 and %d garments", domain.MaxSelections))
		return
	}
	garments, err := a.Garments.GetByIDs(r.Context(), req.GarmentIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, r, http.StatusBadRequest, "invalid_selection", "one or more garments do not exist")
			return
		}
		a.Logger.Error().Err(err).Msg("load garments failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to load garments")
		return
	}

	a.Metrics.GenerationStarted()
	started := time.Now()
	look, err := a.TryOn.TryOn(r.Context(), userID, tryon.Request{
		SourceImage: source,
		Garments:    garments,
		MaxWait:     time.Duration(req.MaxWaitSeconds) * time.Second,
	})
	a.Metrics.GenerationFinished()
	elapsed := time.Since(started).Seconds()
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			a.Metrics.Generation(metrics.OutcomeError, elapsed)
			a.error(w, r, http.StatusUnauthorized, "session_expired", "no active session, sign in again")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.Metrics.Generation(metrics.OutcomeNoCredits, elapsed)
			a.error(w, r, http.StatusPaymentRequired, "insufficient_credits", "no credits left, purchase a pack to continue")
		case errors.Is(err, domain.ErrInvalidSelection):
			a.Metrics.Generation(metrics.OutcomeError, elapsed)
			a.error(w, r, http.StatusBadRequest, "invalid_selection", fmt.Sprintf("pick between 1 and %d garments", domain.MaxSelections))
		case errors.Is(err, domain.ErrTryOnPending):
			a.Metrics.Generation(metrics.OutcomePending, elapsed)
			a.error(w, r, http.StatusConflict, "tryon_pending", "a try-on is already in progress")
		case errors.Is(err, domain.ErrTimeout):
			a.Metrics.Generation(metrics.OutcomeTimeout, elapsed)
			a.error(w, r, http.StatusGatewayTimeout, "timeout", "generation exceeded the requested wait")
		default:
			a.Metrics.Generation(metrics.OutcomeError, elapsed)
			a.Logger.Error().Err(err).Str("identity", userID).Msg("try-on failed")
			a.error(w, r, http.StatusBadGateway, "generation_failed", "the style engine could not produce a look")
		}
		return
	}
	a.Metrics.Generation(metrics.OutcomeOK, elapsed)

	if wantsZip(r) {
		a.writeLookZip(w, r, look)
		return
	}
	dtos := make([]garmentDTO, 0, len(look.Garments))
	for _, g := range look.Garments {
		dtos = append(dtos, toGarmentDTO(g, false))
	}
	a.json(w, http.StatusOK, lookResponse{
		Image:            base64.StdEncoding.EncodeToString(look.Image),
		Garments:         dtos,
		RemainingCredits: look.RemainingCredits,
		CreditsCharged:   look.CreditsCharged,
	})
}

func wantsZip(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "zip") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/zip")
}

func (a *App) writeLookZip(w http.ResponseWriter, r *http.Request, look *tryon.Look) {
	manifest := map[string]any{
		"garments":          garmentNames(look.Garments),
		"remaining_credits": look.RemainingCredits,
		"credits_charged":   look.CreditsCharged,
		"generated_at":      time.Now().UTC().Format(time.RFC3339),
	}
	manifestJSON, _ := json.MarshalIndent(manifest, "", "  ")
	archive := zip.Archive([]zip.Entry{
		{Filename: "look.png", Data: look.Image},
		{Filename: "look.json", Data: manifestJSON},
	})
	if archive == nil {
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="look.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func garmentNames(garments []domain.Garment) []string {
	names := make([]string, 0, len(garments))
	for _, g := range garments {
		names = append(names, g.Name)
	}
	return names
}
