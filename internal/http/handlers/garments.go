package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/middleware"
)

type garmentDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	PriceCents     int    `json:"price_cents"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	PromptFragment string `json:"prompt_fragment,omitempty"`
}

func toGarmentDTO(g domain.Garment, includeFragment bool) garmentDTO {
	dto := garmentDTO{
		ID:          g.ID,
		Name:        g.Name,
		Category:    string(g.Category),
		PriceCents:  g.PriceCents,
		Description: g.Description,
		ImageURL:    g.ImageURL,
	}
	if includeFragment {
		dto.PromptFragment = g.PromptFragment
	}
	return dto
}

// GarmentsList returns the catalog, optionally filtered by ?category=.
func (a *App) GarmentsList(w http.ResponseWriter, r *http.Request) {
	garments, err := a.Garments.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list garments failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to load catalog")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	admin := middleware.IsAdminFromContext(r.Context())
	out := make([]garmentDTO, 0, len(garments))
	for _, g := range garments {
		if category != "" && !strings.EqualFold(category, string(g.Category)) {
			continue
		}
		out = append(out, toGarmentDTO(g, admin))
	}
	a.json(w, http.StatusOK, map[string]any{"garments": out})
}

type garmentCreateRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	PriceCents     int    `json:"price_cents"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	PromptFragment string `json:"prompt_fragment"`
}

// GarmentsCreate adds a catalog item. Admin only.
func (a *App) GarmentsCreate(w http.ResponseWriter, r *http.Request) {
	if a.currentUserID(r) == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if !middleware.IsAdminFromContext(r.Context()) {
		a.error(w, r, http.StatusForbidden, "forbidden", "admin access required")
		return
	}
	var req garmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PromptFragment) == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "name and prompt_fragment required")
		return
	}
	if !domain.ValidCategory(domain.GarmentCategory(req.Category)) {
		a.error(w, r, http.StatusBadRequest, "bad_request", "unknown category")
		return
	}
	created, err := a.Garments.Insert(r.Context(), &domain.Garment{
		Name:           req.Name,
		Category:       domain.GarmentCategory(req.Category),
		PriceCents:     req.PriceCents,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		PromptFragment: req.PromptFragment,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("insert garment failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to add garment")
		return
	}
	a.json(w, http.StatusCreated, toGarmentDTO(*created, true))
}
