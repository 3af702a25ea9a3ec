// Package provider defines the collaborator interfaces name
// as out-of-scope: payment-provider SDK internals (Wave/Stripe/Orange/
// MTN), notification fan-out, and authentication/JWT issuance. The engine
// depends only on these interfaces; a real deployment supplies concrete
// adapters, this module ships the minimal stub every pipeline needs to
// compile and be tested against.
//
// Grounded on the teacher's provider.Provider interface + registry
// (services/gateway/provider/provider.go): same "interface + name-keyed
// registry" shape, repurposed from LLM providers to payment rails.
package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/money"
)

// Name identifies a payment rail, matching the `method` values 
// accepts on /payments/deposit/initiate.
type Name string

const (
	Wave Name = "wave"
	Stripe Name = "stripe"
	OrangeMoney Name = "orange_money"
	MTNMomo Name = "mtn_momo"
)

// DepositRequest is what the engine asks a provider to start.
type DepositRequest struct {
	UserID int64
	Amount money.Decimal
	PhoneNumber string
	Reference string // merchant-side tag, BOOMS_DEPOSIT_<user_id>_<ms>
}

// DepositSession is the provider-specific session data handed back to
// the client to complete a deposit (checkout URL, USSD code, etc).
type DepositSession struct {
	Provider Name
	Reference string
	RedirectURL string
	Extra map[string]string
}

// PayoutRequest is what the engine asks a provider to disburse.
type PayoutRequest struct {
	UserID int64
	Amount money.Decimal
	PhoneNumber string
	Reference string // BOOMS_WITHDRAWAL_<...>
}

// PayoutResult is the provider's initial acknowledgement of a payout.
type PayoutResult struct {
	Provider Name
	ProviderTxID string
	AcceptedAt time.Time
}

// PaymentProvider is the collaborator interface every rail implements.
// Real Wave/Stripe/Orange/MTN SDK internals live outside this module.
type PaymentProvider interface {
	Name() Name
	InitiateDeposit(ctx context.Context, req DepositRequest) (DepositSession, error)
	InitiatePayout(ctx context.Context, req PayoutRequest) (PayoutResult, error)
	// WebhookSecret returns the configured HMAC secret for this provider,
	// or "" if the provider is unconfigured (PROVIDER_UNCONFIGURED).
	WebhookSecret() string
}

// Notifier is the out-of-scope notification fan-out collaborator
//. Pipelines call it post-commit only; a failure here is
// logged, never propagated as a pipeline error.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]any) error
}

// Authenticator is the out-of-scope HTTP auth/JWT issuance collaborator
//. The engine needs only enough of this to resolve a
// request's acting user_id; real issuance/validation lives outside.
type Authenticator interface {
	IssueToken(ctx context.Context, userID int64) (string, error)
	ValidateToken(ctx context.Context, token string) (userID int64, err error)
}

// Registry holds the configured providers, keyed by Name, mirroring the
// teacher's provider registry.
type Registry struct {
	providers map[Name]PaymentProvider
}

// NewRegistry builds an empty registry; callers Register each configured
// provider (an unconfigured provider, per, is simply absent).
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Name]PaymentProvider)}
}

// Register adds p to the registry.
func (r *Registry) Register(p PaymentProvider) {
	r.providers[p.Name()] = p
}

// Get resolves a provider by name, failing PROVIDER_UNCONFIGURED if
// absent.
func (r *Registry) Get(name Name) (PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperr.New(apperr.CodeProviderUnconfigured, fmt.Sprintf("provider %q is not configured", name))
	}
	return p, nil
}

// List returns the names of every registered provider.
func (r *Registry) List() []Name {
	names := make([]Name, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// VerifyHMACSHA256 verifies a provider webhook's HMAC-SHA256 signature
// against secret, per step 1. Constant-time comparison
// avoids a timing side channel on the signature check.
func VerifyHMACSHA256(payload []byte, signatureHex, secret string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	given, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(expected, given) == 1
}
