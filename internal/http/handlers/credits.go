package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"server/internal/domain"
	"server/internal/ledger"
)

// creditPacks are the purchasable top-up sizes.
var creditPacks = map[int]bool{10: true, 25: true, 60: true}

type purchaseRequest struct {
	Credits int `json:"credits"`
}

type purchaseResponse struct {
	Credits int `json:"credits"`
	Granted int `json:"granted"`
}

// CreditsPurchase tops up the signed-in user's balance by one pack.
func (a *App) CreditsPurchase(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if !creditPacks[req.Credits] {
		a.error(w, r, http.StatusBadRequest, "bad_request", "unknown credit pack")
		return
	}
	// Read the session balance only once the request is validated, right
	// before the write, so a concurrent debit is not overwritten.
	profile, ok := a.Sessions.Profile(userID)
	if !ok {
		a.error(w, r, http.StatusUnauthorized, "session_expired", "no active session, sign in again")
		return
	}

	updated := profile
	updated.Credits = profile.Credits + req.Credits
	if err := a.Ledger.UpdateCredits(r.Context(), userID, updated.Credits); err != nil {
		if errors.Is(err, ledger.ErrAuditAppendFailed) {
			// Balance landed, audit row lagging. The purchase went through.
			a.Logger.Error().Err(err).Str("identity", userID).Msg("purchase recorded but audit append failed")
			a.Sessions.Replace(userID, &updated)
			a.Metrics.CreditsGranted(req.Credits)
			a.json(w, http.StatusOK, purchaseResponse{Credits: updated.Credits, Granted: req.Credits})
			return
		}
		a.Logger.Error().Err(err).Str("identity", userID).Msg("credit purchase failed")
		a.error(w, r, http.StatusInternalServerError, "ledger_write_failed", "purchase could not be recorded")
		return
	}
	a.Sessions.Replace(userID, &updated)
	a.Metrics.CreditsGranted(req.Credits)
	a.json(w, http.StatusOK, purchaseResponse{Credits: updated.Credits, Granted: req.Credits})
}

type transactionDTO struct {
	ID        string `json:"id"`
	Amount    int    `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// CreditsTransactions lists the user's most recent ledger entries.
func (a *App) CreditsTransactions(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	txs, err := a.Profiles.ListTransactions(r.Context(), userID, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.Logger.Error().Err(err).Str("identity", userID).Msg("list transactions failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to load transactions")
		return
	}
	out := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionDTO{ID: tx.ID, Amount: tx.Amount, CreatedAt: tx.CreatedAt.UTC().Format(time.RFC3339)})
	}
	a.json(w, http.StatusOK, map[string]any{"transactions": out})
}
