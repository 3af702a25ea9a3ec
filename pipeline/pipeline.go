package pipeline

import (
	"github.com/booms-platform/booms-core/config"
	"github.com/booms-platform/booms-core/events"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/store"
	"github.com/rs/zerolog"
)

// Pipelines bundles the collaborators every action pipeline needs: the
// transactional store, the post-commit event broadcaster, the payment
// provider registry and notifier (invoked strictly outside the
// transaction, per), process configuration, and the metrics
// registry each pipeline reports committed ledger movements to.
type Pipelines struct {
	Store *store.Store
	Events *events.Broadcaster
	Providers *provider.Registry
	Notifier provider.Notifier
	Cfg *config.Config
	Metrics *observability.Metrics
	Logger zerolog.Logger
}

// New builds a Pipelines bundle.
func New(s *store.Store, ev *events.Broadcaster, providers *provider.Registry, notifier provider.Notifier, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) *Pipelines {
	return &Pipelines{
		Store: s,
		Events: ev,
		Providers: providers,
		Notifier: notifier,
		Cfg: cfg,
		Metrics: metrics,
		Logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// adminLargeTransactionThreshold is step 9's ">50,000 FCFA"
// admin-audit trigger.
const adminLargeTransactionThreshold = 50000
