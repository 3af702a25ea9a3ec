package handler

import (
	"net/http"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/rs/zerolog"
)

// MarketHandler serves the primary-purchase, secondary-sale, and
// free-share endpoints: /purchase/bom, /market/buy, /market/sell,
// /transfer.
type MarketHandler struct {
	pipelines *pipeline.Pipelines
	metrics *observability.Metrics
	logger zerolog.Logger
}

// NewMarketHandler builds a MarketHandler.
func NewMarketHandler(p *pipeline.Pipelines, metrics *observability.Metrics, logger zerolog.Logger) *MarketHandler {
	return &MarketHandler{pipelines: p, metrics: metrics, logger: logger.With().Str("handler", "market").Logger()}
}

type purchaseRequest struct {
	BoomID int64 `json:"boom_id"`
	Quantity int `json:"quantity"`
}

// Purchase handles POST /purchase/bom and its alias POST /market/buy.
func (h *MarketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	result, err := h.pipelines.Purchase(r.Context(), pipeline.PurchaseInput{
		UserID: userID,
		BoomID: req.BoomID,
		Quantity: req.Quantity,
	})
	h.metrics.TrackPipelineOutcome("purchase", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type saleRequest struct {
	BuyerID int64 `json:"buyer_id"`
	HoldingID int64 `json:"holding_id"`
	SellPrice money.Decimal `json:"sell_price"`
}

// Sell handles POST /market/sell.
func (h *MarketHandler) Sell(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	result, err := h.pipelines.Sell(r.Context(), pipeline.SaleInput{
		SellerID: sellerID,
		BuyerID: req.BuyerID,
		HoldingID: req.HoldingID,
		SellPrice: req.SellPrice,
	})
	h.metrics.TrackPipelineOutcome("sale", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transferRequest struct {
	ReceiverID int64 `json:"receiver_id"`
	TokenID string `json:"token_id"`
	Message string `json:"message"`
}

// Transfer handles POST /transfer — a free internal share. The transfer
// pipeline would otherwise be unreachable over HTTP, so it is wired here alongside
// the market handlers.
func (h *MarketHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	senderID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	result, err := h.pipelines.Transfer(r.Context(), pipeline.TransferInput{
		SenderID: senderID,
		ReceiverID: req.ReceiverID,
		TokenID: req.TokenID,
		Message: req.Message,
	})
	h.metrics.TrackPipelineOutcome("transfer", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
