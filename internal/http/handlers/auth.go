package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  profileDTO `json:"user"`
}

type profileDTO struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
	IsAdmin bool   `json:"is_admin"`
}

func toProfileDTO(p *domain.Profile) profileDTO {
	return profileDTO{ID: p.ID, Email: p.Email, Credits: p.Credits, IsAdmin: p.IsAdmin}
}

func (a *App) AuthSignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	profile, err := a.Sessions.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyRegistered):
			a.Metrics.SignUp(metrics.OutcomeAlreadyRegistered)
			a.error(w, r, http.StatusConflict, "already_registered", "this email is already registered, sign in instead")
		case errors.Is(err, domain.ErrTimeout):
			a.Metrics.SignUp(metrics.OutcomeTimeout)
			a.error(w, r, http.StatusGatewayTimeout, "timeout", "sign-up timed out")
		case errors.Is(err, domain.ErrProvisioningFailed):
			a.Metrics.SignUp(metrics.OutcomeError)
			a.Logger.Error().Err(err).Msg("profile provisioning failed")
			a.error(w, r, http.StatusInternalServerError, "provisioning_failed", "account created but profile setup failed, try signing in")
		default:
			a.Metrics.SignUp(metrics.OutcomeError)
			a.Logger.Error().Err(err).Msg("sign-up failed")
			a.error(w, r, http.StatusBadGateway, "auth_unavailable", "sign-up failed")
		}
		return
	}
	a.Metrics.SignUp(metrics.OutcomeOK)
	a.Metrics.CreditsGranted(profile.Credits)
	a.respondWithToken(w, r, profile)
}

func (a *App) AuthSignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeCredentials(w, r)
	if !ok {
		return
	}
	profile, err := a.Sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			a.Metrics.SignIn(metrics.OutcomeInvalid)
			a.error(w, r, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
		case errors.Is(err, domain.ErrProfileNotFound):
			a.Metrics.SignIn(metrics.OutcomeNoProfile)
			a.error(w, r, http.StatusForbidden, "no_profile", "no profile exists for this account")
		case errors.Is(err, domain.ErrTimeout):
			a.Metrics.SignIn(metrics.OutcomeTimeout)
			a.error(w, r, http.StatusGatewayTimeout, "timeout", "sign-in timed out")
		default:
			a.Metrics.SignIn(metrics.OutcomeError)
			a.Logger.Error().Err(err).Msg("sign-in failed")
			a.error(w, r, http.StatusBadGateway, "auth_unavailable", "sign-in failed")
		}
		return
	}
	a.Metrics.SignIn(metrics.OutcomeOK)
	a.respondWithToken(w, r, profile)
}

func (a *App) AuthSignOut(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.Sessions.SignOut(r.Context(), userID); err != nil {
		a.Logger.Error().Err(err).Str("identity", userID).Msg("sign-out failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "sign-out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	profile, ok := a.Sessions.Profile(userID)
	if !ok {
		a.error(w, r, http.StatusUnauthorized, "session_expired", "no active session, sign in again")
		return
	}
	a.json(w, http.StatusOK, toProfileDTO(&profile))
}

func (a *App) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return req, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "email and password required")
		return req, false
	}
	return req, true
}

func (a *App) respondWithToken(w http.ResponseWriter, r *http.Request, profile *domain.Profile) {
	token, err := middleware.SignJWT(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:    profile.ID,
		Email:  profile.Email,
		Admin:  profile.IsAdmin,
		Locale: middleware.LocaleFromContext(r.Context()),
		Exp:    time.Now().Add(24 * time.Hour).Unix(),
		Issuer: "tryon-storefront",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, User: toProfileDTO(profile)})
}
