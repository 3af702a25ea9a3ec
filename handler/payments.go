package handler

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	bmw "github.com/booms-platform/booms-core/middleware"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PaymentsHandler serves the deposit-initiation and provider-webhook
// endpoints.
type PaymentsHandler struct {
	pipelines *pipeline.Pipelines
	reconciler *webhook.Reconciler
	rateLimiter *bmw.RateLimiter
	metrics *observability.Metrics
	logger zerolog.Logger
}

// NewPaymentsHandler builds a PaymentsHandler.
func NewPaymentsHandler(p *pipeline.Pipelines, rec *webhook.Reconciler, rl *bmw.RateLimiter, metrics *observability.Metrics, logger zerolog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		pipelines: p,
		reconciler: rec,
		rateLimiter: rl,
		metrics: metrics,
		logger: logger.With().Str("handler", "payments").Logger(),
	}
}

type depositInitiateRequest struct {
	Amount money.Decimal `json:"amount"`
	Method provider.Name `json:"method"`
	PhoneNumber string `json:"phone_number"`
}

// DepositInitiate handles POST /payments/deposit/initiate.
func (h *PaymentsHandler) DepositInitiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req depositInitiateRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	session, err := h.pipelines.InitiateDeposit(r.Context(), pipeline.DepositInitiateInput{
		UserID: userID,
		Amount: req.Amount,
		Method: req.Method,
		PhoneNumber: req.PhoneNumber,
	})
	h.metrics.TrackPipelineOutcome("deposit_initiate", outcomeLabel(err))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type webhookPayload struct {
	Reference string `json:"reference"`
	Status string `json:"status"`
}

// Webhook handles POST /payments/{provider}/webhook — Supplemented
// Feature #5 keys the per-provider rate limiter by the URL's provider
// segment so one noisy rail can't starve the others' callback budget.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	providerName := provider.Name(chi.URLParam(r, "provider"))

	if allowed, _, reset := h.rateLimiter.Allow("webhook:" + string(providerName)); !allowed {
		w.Header().Set("Retry-After", time.Until(reset).Round(time.Second).String())
		h.metrics.TrackWebhookCallback(string(providerName), "rate_limited")
		apperr.WriteJSON(w, apperr.New(apperr.CodeValidation, "webhook rate limit exceeded for provider"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.CodeValidation, "failed to read webhook body"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.CodeValidation, "failed to parse webhook body"))
		return
	}

	signatureHex := r.Header.Get("X-Webhook-Signature")
	if _, err := hex.DecodeString(signatureHex); err != nil {
		h.metrics.TrackWebhookCallback(string(providerName), "signature_failed")
		apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "malformed webhook signature header"))
		return
	}

	status, err := h.reconciler.Handle(r.Context(), webhook.Callback{
		Provider: providerName,
		SignatureHex: signatureHex,
		RawBody: body,
		Reference: payload.Reference,
		Status: payload.Status,
	})
	h.metrics.TrackWebhookCallback(string(providerName), outcomeLabel(err))
	if err != nil {
		// An unregistered provider, a signature failure, or a failed
		// reconciliation transaction reaches the caller as non-2xx;
		// every other outcome reports 200 since providers retry
		// aggressively on non-2xx replies.
		apperr.WriteJSON(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
