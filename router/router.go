// Package router assembles the HTTP surface of : one chi
// route tree, the shared middleware chain, and every handler wired to
// its collaborator pipeline. Modeled on the teacher gateway's router —
// CORS, security headers, request ID, panic recovery, request logging,
// body-size limiting — with BOOMS-specific auth/rate-limit/timeout
// middleware layered on the mutating routes.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/booms-platform/booms-core/caching"
	"github.com/booms-platform/booms-core/config"
	"github.com/booms-platform/booms-core/handler"
	bmw "github.com/booms-platform/booms-core/middleware"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/store"
	"github.com/booms-platform/booms-core/webhook"

	"github.com/booms-platform/booms-core/interaction"
)

// Deps collects every collaborator the router needs to build handlers.
type Deps struct {
	Cfg *config.Config
	Store *store.Store
	Pipelines *pipeline.Pipelines
	Reconciler *webhook.Reconciler
	Interactor *interaction.Recorder
	Auth provider.Authenticator
	BalanceCache *caching.BalanceCache
	Metrics *observability.Metrics
	Logger zerolog.Logger
}

// New builds the full chi route tree.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware chain (order matters) ---
	r.Use(bmw.CORSMiddleware([]string{"*"}))
	r.Use(bmw.SecurityHeadersMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(d.Logger, d.Metrics))
	r.Use(maxBodySize(d.Cfg.MaxBodyBytes))

	timeoutMW := bmw.NewTimeoutMiddleware(d.Logger, d.Cfg)
	r.Use(timeoutMW.Handler)

	authMW := bmw.NewAuthMiddleware(d.Logger, d.Auth)
	defaultLimiter := bmw.NewRateLimiter(d.Logger, d.Cfg.RateLimitEnabled, d.Cfg.RateLimitDefaultRPM, d.Cfg.RateLimitBurst)
	webhookLimiter := bmw.NewRateLimiter(d.Logger, d.Cfg.RateLimitEnabled, d.Cfg.RateLimitWebhookRPM, d.Cfg.RateLimitBurst)

	r.Get("/healthz", healthHandler)
	r.Get("/ready", healthHandler)
	r.Get("/metrics", d.Metrics.Handler())

	walletH := handler.NewWalletHandler(d.Store, d.BalanceCache, d.Logger)
	marketH := handler.NewMarketHandler(d.Pipelines, d.Metrics, d.Logger)
	giftH := handler.NewGiftHandler(d.Store, d.Pipelines, d.Metrics, d.Logger)
	withdrawalH := handler.NewWithdrawalHandler(d.Store, d.Pipelines, d.Metrics, d.Logger)
	paymentsH := handler.NewPaymentsHandler(d.Pipelines, d.Reconciler, webhookLimiter, d.Metrics, d.Logger)
	interactionH := handler.NewInteractionHandler(d.Interactor, d.Metrics, d.Logger)

	r.Route("/payments", func(rt chi.Router) {
		// The inbound webhook is unauthenticated (providers don't hold our
		// JWTs) — it is protected instead by HMAC signature verification
		// inside the reconciler and its own per-provider rate limiter.
		rt.Post("/{provider}/webhook", paymentsH.Webhook)

		rt.Group(func(authed chi.Router) {
			authed.Use(authMW.Handler)
			authed.Use(defaultLimiter.Handler)
			authed.Post("/deposit/initiate", paymentsH.DepositInitiate)
		})
	})

	r.Group(func(rt chi.Router) {
		rt.Use(authMW.Handler)
		rt.Use(defaultLimiter.Handler)

		rt.Get("/wallet/balance", walletH.Balance)
		rt.Get("/wallet/cash-balance", walletH.CashBalance)
		rt.Get("/wallet/dual-balance", walletH.DualBalance)

		rt.Post("/purchase/bom", marketH.Purchase)
		rt.Post("/market/buy", marketH.Purchase)
		rt.Post("/market/sell", marketH.Sell)
		rt.Post("/transfer", marketH.Transfer)

		rt.Post("/gift/send", giftH.Send)
		rt.Post("/gift/accept/{giftID}", giftH.Accept)
		rt.Post("/gift/decline/{giftID}", giftH.Decline)
		rt.Get("/gift/inbox", giftH.Inbox)

		rt.Post("/withdrawal/bom/validate", withdrawalH.Validate)
		rt.Post("/withdrawal/bom/execute", withdrawalH.Execute)

		rt.Post("/interactions/", interactionH.Record)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"booms-core"}`))
}

func maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request_too_large","message":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger zerolog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			dur := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", dur).
				Msg("request completed")
			metrics.TrackRequest(r.URL.Path, r.Method, rw.Status(), float64(dur.Milliseconds()))
		})
	}
}
