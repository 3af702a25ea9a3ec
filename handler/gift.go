package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// GiftHandler serves /gift/send, /gift/accept, /gift/decline, and the
// read-only /gift/inbox summary.
type GiftHandler struct {
	store *store.Store
	pipelines *pipeline.Pipelines
	metrics *observability.Metrics
	logger zerolog.Logger
}

// NewGiftHandler builds a GiftHandler.
func NewGiftHandler(s *store.Store, p *pipeline.Pipelines, metrics *observability.Metrics, logger zerolog.Logger) *GiftHandler {
	return &GiftHandler{store: s, pipelines: p, metrics: metrics, logger: logger.With().Str("handler", "gift").Logger()}
}

type giftSendRequest struct {
	ReceiverID int64 `json:"receiver_id"`
	TokenID string `json:"token_id"`
	Message string `json:"message"`
}

// Send handles POST /gift/send.
func (h *GiftHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req giftSendRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	gift, err := h.pipelines.SendGift(r.Context(), pipeline.GiftSendInput{
		SenderID: senderID,
		ReceiverID: req.ReceiverID,
		TokenID: req.TokenID,
		Message: req.Message,
	})
	h.metrics.TrackPipelineOutcome("gift_send", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gift)
}

func (h *GiftHandler) giftIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "giftID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.CodeValidation, "invalid gift id"))
		return 0, false
	}
	return id, true
}

// Accept handles POST /gift/accept/{giftID}.
func (h *GiftHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	giftID, ok := h.giftIDParam(w, r)
	if !ok {
		return
	}
	gift, err := h.pipelines.AcceptGift(r.Context(), giftID)
	h.metrics.TrackPipelineOutcome("gift_accept", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gift)
}

// Decline handles POST /gift/decline/{giftID}.
func (h *GiftHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	giftID, ok := h.giftIDParam(w, r)
	if !ok {
		return
	}
	gift, err := h.pipelines.DeclineGift(r.Context(), giftID)
	h.metrics.TrackPipelineOutcome("gift_decline", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gift)
}

type giftSummary struct {
	ID int64 `json:"id"`
	SenderID int64 `json:"sender_id"`
	ReceiverID int64 `json:"receiver_id"`
	Status string `json:"status"`
	TransactionReference string `json:"transaction_reference"`
}

type giftInboxResponse struct {
	Summary struct {
		ReceivedCount int `json:"received_count"`
		SentCount int `json:"sent_count"`
		PendingCount int `json:"pending_count"`
	} `json:"summary"`
	Lists struct {
		Received []giftSummary `json:"received"`
		Sent []giftSummary `json:"sent"`
		Pending []giftSummary `json:"pending"`
	} `json:"lists"`
}

// Inbox handles GET /gift/inbox — a read-only summary assembled directly
// off the gifts table since no mutating pipeline backs it.
func (h *GiftHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var resp giftInboxResponse

	received, err := h.queryGifts(r.Context(), "receiver_id = $1", userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	sent, err := h.queryGifts(r.Context(), "sender_id = $1", userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	pending, err := h.queryGifts(r.Context(), "receiver_id = $1 AND status = 'PAID'", userID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	resp.Lists.Received = received
	resp.Lists.Sent = sent
	resp.Lists.Pending = pending
	resp.Summary.ReceivedCount = len(received)
	resp.Summary.SentCount = len(sent)
	resp.Summary.PendingCount = len(pending)

	writeJSON(w, http.StatusOK, resp)
}

func (h *GiftHandler) queryGifts(ctx context.Context, whereClause string, userID int64) ([]giftSummary, error) {
	rows, err := h.store.Pool.Query(ctx, "SELECT id, sender_id, receiver_id, status, transaction_reference FROM gifts WHERE "+whereClause+" ORDER BY created_at DESC LIMIT 50", userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeIntegrityError, "gift inbox query failed", err)
	}
	defer rows.Close()

	var out []giftSummary
	for rows.Next() {
		var g giftSummary
		if err := rows.Scan(&g.ID, &g.SenderID, &g.ReceiverID, &g.Status, &g.TransactionReference); err != nil {
			return nil, apperr.Wrap(apperr.CodeIntegrityError, "gift inbox row scan failed", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
