package provider

import (
	"context"
	"fmt"

	"github.com/booms-platform/booms-core/apperr"
)

// StubRail is a minimal PaymentProvider sufficient to exercise every
// pipeline against: it never calls out to a real rail, returning
// deterministic session/result data keyed off the request reference. A
// production deployment swaps this for a real Wave/Stripe/Orange/MTN
// client behind the same interface.
type StubRail struct {
	name Name
	secret string
}

// NewStubRail builds a stub for name, configured with webhookSecret (pass
// "" to leave the provider unconfigured).
func NewStubRail(name Name, webhookSecret string) *StubRail {
	return &StubRail{name: name, secret: webhookSecret}
}

func (s *StubRail) Name() Name { return s.name }

func (s *StubRail) WebhookSecret() string { return s.secret }

func (s *StubRail) InitiateDeposit(ctx context.Context, req DepositRequest) (DepositSession, error) {
	if s.secret == "" {
		return DepositSession{}, apperr.New(apperr.CodeProviderUnconfigured, fmt.Sprintf("%s is not configured", s.name))
	}
	return DepositSession{
		Provider: s.name,
		Reference: req.Reference,
		RedirectURL: fmt.Sprintf("https://pay.example/%s/%s", s.name, req.Reference),
		Extra: map[string]string{"status": "pending"},
	}, nil
}

func (s *StubRail) InitiatePayout(ctx context.Context, req PayoutRequest) (PayoutResult, error) {
	if s.secret == "" {
		return PayoutResult{}, apperr.New(apperr.CodeProviderUnconfigured, fmt.Sprintf("%s is not configured", s.name))
	}
	return PayoutResult{
		Provider: s.name,
		ProviderTxID: "stub-" + req.Reference,
	}, nil
}

// NoopNotifier discards every notification — the default collaborator
// when no real notification transport is wired.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, userID int64, kind string, payload map[string]any) error {
	return nil
}

// PassthroughAuthenticator is a stub Authenticator: it issues the user_id
// itself as the "token" and validates by parsing it back. Real JWT
// issuance/validation is an out-of-scope collaborator to be swapped in
// later.
type PassthroughAuthenticator struct{}

func (PassthroughAuthenticator) IssueToken(ctx context.Context, userID int64) (string, error) {
	return fmt.Sprintf("stub-token-%d", userID), nil
}

func (PassthroughAuthenticator) ValidateToken(ctx context.Context, token string) (int64, error) {
	var userID int64
	if _, err := fmt.Sscanf(token, "stub-token-%d", &userID); err != nil {
		return 0, apperr.New(apperr.CodeForbidden, "invalid token")
	}
	return userID, nil
}
