package handler

import (
	"net/http"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/caching"
	"github.com/booms-platform/booms-core/ledger"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/store"
	"github.com/rs/zerolog"
)

// WalletHandler serves the read-only balance endpoints.
// None of these back a mutating pipeline, so they read straight off the
// pool rather than opening a row-locked transaction.
type WalletHandler struct {
	store *store.Store
	cache *caching.BalanceCache
	logger zerolog.Logger
}

// NewWalletHandler builds a WalletHandler.
func NewWalletHandler(s *store.Store, cache *caching.BalanceCache, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{store: s, cache: cache, logger: logger.With().Str("handler", "wallet").Logger()}
}

type balanceResponse struct {
	Balance money.Decimal `json:"balance"`
	Currency money.Currency `json:"currency"`
}

// Balance handles GET /wallet/balance (virtual balance).
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	vb, err := ledger.GetVirtualBalance(r.Context(), h.store.Pool, userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: vb.Balance, Currency: money.FCFA})
}

// CashBalance handles GET /wallet/cash-balance (real balance).
func (h *WalletHandler) CashBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	rb, err := ledger.GetRealBalance(r.Context(), h.store.Pool, userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: rb.Available, Currency: money.FCFA})
}

// DualBalance handles GET /wallet/dual-balance — Supplemented Feature #1:
// a short-TTL per-user read cache absorbs trading-UI read pressure, since
// this combined view is polled far more often than either balance alone.
func (h *WalletHandler) DualBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if cached, hit := h.cache.Get(userID); hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rb, err := ledger.GetRealBalance(r.Context(), h.store.Pool, userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	vb, err := ledger.GetVirtualBalance(r.Context(), h.store.Pool, userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	resp := caching.DualBalance{
		RealBalance: rb.Available,
		VirtualBalance: vb.Balance,
		TotalBalance: rb.Available.Add(vb.Balance),
		Currency: money.FCFA,
	}
	h.cache.Set(userID, resp)
	writeJSON(w, http.StatusOK, resp)
}
