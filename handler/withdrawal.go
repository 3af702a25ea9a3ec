package handler

import (
	"net/http"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/fees"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/store"
	"github.com/rs/zerolog"
)

// WithdrawalHandler serves the BOOM-withdrawal precheck and execution
// endpoints.
type WithdrawalHandler struct {
	store *store.Store
	pipelines *pipeline.Pipelines
	metrics *observability.Metrics
	logger zerolog.Logger
}

// NewWithdrawalHandler builds a WithdrawalHandler.
func NewWithdrawalHandler(s *store.Store, p *pipeline.Pipelines, metrics *observability.Metrics, logger zerolog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{store: s, pipelines: p, metrics: metrics, logger: logger.With().Str("handler", "withdrawal").Logger()}
}

type withdrawalValidateRequest struct {
	HoldingID int64 `json:"holding_id"`
}

type withdrawalValidateResponse struct {
	Quote fees.WithdrawalQuote `json:"quote"`
	Eligible bool `json:"eligible"`
	Reason string `json:"reason,omitempty"`
}

// Validate handles POST /withdrawal/bom/validate — a non-mutating
// precheck that quotes the payout without taking any row lock, since it
// backs no pipeline transaction.
func (h *WithdrawalHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req withdrawalValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	var ownerID int64
	var isSold, isTransferred, isDeleted bool
	var marketValue money.Decimal

	row := h.store.Pool.QueryRow(r.Context(), `
		SELECT h.owner_id, h.is_sold, h.transferred_at IS NOT NULL, h.deleted_at IS NOT NULL,
		 b.base_price + b.applied_micro_value
		FROM holdings h JOIN booms b ON b.id = h.boom_id
		WHERE h.id = $1`, req.HoldingID)
	if err := row.Scan(&ownerID, &isSold, &isTransferred, &isDeleted, &marketValue); err != nil {
		apperr.WriteJSON(w, apperr.Wrap(apperr.CodeHoldingNotOwned, "holding not found", err))
		return
	}

	resp := withdrawalValidateResponse{}
	switch {
	case isDeleted:
		resp.Reason = "holding already withdrawn"
	case ownerID != userID:
		resp.Reason = "holding not owned by requesting user"
	case isSold || isTransferred:
		resp.Reason = "holding is pending a gift or secondary sale"
	default:
		resp.Eligible = true
		resp.Quote = fees.QuoteWithdrawal(money.RoundFCFA(marketValue))
	}
	writeJSON(w, http.StatusOK, resp)
}

type withdrawalExecuteRequest struct {
	HoldingID int64 `json:"holding_id"`
	PhoneNumber string `json:"phone_number"`
	Provider provider.Name `json:"provider"`
}

// Execute handles POST /withdrawal/bom/execute.
func (h *WithdrawalHandler) Execute(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req withdrawalExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	result, err := h.pipelines.Withdraw(r.Context(), pipeline.WithdrawalInput{
		UserID: userID,
		HoldingID: req.HoldingID,
		PhoneNumber: req.PhoneNumber,
		Provider: req.Provider,
	})
	h.metrics.TrackPipelineOutcome("withdrawal", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
