// Package sweep implements the cron-scheduled autonomous jobs the system
// requires outside of any user action: gift expiry/abandonment
// and BOOM social-event expiry.
//
// Grounded on the teacher's dividend_distributor.go: a cron.Cron-scheduled
// struct owning AddFunc entries plus explicit Start/Stop/RunNow methods,
// repurposed from monthly treasury distribution to minute-scale ledger
// sweeps.
package sweep

import (
	"context"
	"time"

	"github.com/booms-platform/booms-core/config"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/social"
	"github.com/booms-platform/booms-core/store"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	giftExpirySchedule = "*/1 * * * *" // every minute
	giftAbandonSchedule = "*/5 * * * *"
	eventExpirySchedule = "*/1 * * * *"
	sweepBatchSize = 200
)

// Sweeper owns the cron scheduler and the collaborators its jobs need.
type Sweeper struct {
	Store *store.Store
	Pipelines *pipeline.Pipelines
	Cfg *config.Config
	Logger zerolog.Logger
	cron *cron.Cron
}

// New builds a Sweeper.
func New(s *store.Store, pipelines *pipeline.Pipelines, cfg *config.Config, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		Store: s,
		Pipelines: pipelines,
		Cfg: cfg,
		Logger: logger.With().Str("component", "sweep").Logger(),
		cron: cron.New(),
	}
}

// Start registers every sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(giftExpirySchedule, s.runGiftExpirySweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(giftAbandonSchedule, s.runGiftAbandonSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(eventExpirySchedule, s.runEventExpirySweep); err != nil {
		return err
	}
	s.cron.Start()
	s.Logger.Info().Msg("sweepers started")
	return nil
}

// Stop drains in-flight jobs and stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.Logger.Info().Msg("sweepers stopped")
}

// runGiftExpirySweep transitions PAID gifts past expires_at to EXPIRED,
// restoring each sender's escrowed holding.
func (s *Sweeper) runGiftExpirySweep() {
	ctx := context.Background()
	ids, err := dueGiftIDs(ctx, s.Store, "PAID", sweepBatchSize)
	if err != nil {
		s.Logger.Error().Err(err).Msg("gift expiry sweep: failed to list due gifts")
		return
	}
	for _, id := range ids {
		if err := s.Pipelines.ExpireGift(ctx, id); err != nil {
			s.Logger.Error().Err(err).Int64("gift_id", id).Msg("gift expiry sweep: failed to expire gift")
		}
	}
	if len(ids) > 0 {
		s.Logger.Info().Int("count", len(ids)).Msg("gift expiry sweep: processed")
	}
}

// runGiftAbandonSweep fails CREATED gifts older than
// Cfg.GiftCreatedAbandon — these never debited the sender.
func (s *Sweeper) runGiftAbandonSweep() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.Cfg.GiftCreatedAbandon)
	ids, err := abandonedCreatedGiftIDs(ctx, s.Store, cutoff, sweepBatchSize)
	if err != nil {
		s.Logger.Error().Err(err).Msg("gift abandon sweep: failed to list stale gifts")
		return
	}
	for _, id := range ids {
		if err := s.Pipelines.AbandonCreatedGift(ctx, id); err != nil {
			s.Logger.Error().Err(err).Int64("gift_id", id).Msg("gift abandon sweep: failed to abandon gift")
		}
	}
	if len(ids) > 0 {
		s.Logger.Info().Int("count", len(ids)).Msg("gift abandon sweep: processed")
	}
}

// runEventExpirySweep clears an expired active_event on every BOOM that
// has one past its event_expires_at.
func (s *Sweeper) runEventExpirySweep() {
	ctx := context.Background()
	n, err := expireBoomEvents(ctx, s.Store, sweepBatchSize)
	if err != nil {
		s.Logger.Error().Err(err).Msg("event expiry sweep: failed")
		return
	}
	if n > 0 {
		s.Logger.Info().Int("count", n).Msg("event expiry sweep: processed")
	}
}

func dueGiftIDs(ctx context.Context, st *store.Store, status string, limit int) ([]int64, error) {
	rows, err := st.Pool.Query(ctx, `
		SELECT id FROM gifts WHERE status = $1 AND expires_at < now() LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func abandonedCreatedGiftIDs(ctx context.Context, st *store.Store, cutoff time.Time, limit int) ([]int64, error) {
	rows, err := st.Pool.Query(ctx, `
		SELECT id FROM gifts WHERE status = 'CREATED' AND created_at < $1 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// expireBoomEvents clears active_event/event_expires_at on every BOOM row
// past its expiry, reusing social.ExpireIfPast's decision so the sweep
// and the action pipelines never disagree on the expiry rule.
func expireBoomEvents(ctx context.Context, st *store.Store, limit int) (int, error) {
	rows, err := st.Pool.Query(ctx, `
		SELECT id FROM booms
		WHERE active_event IS NOT NULL AND event_expires_at IS NOT NULL AND event_expires_at < now()
		LIMIT $1`, limit)
	if err != nil {
		return 0, err
	}
	ids, err := scanIDs(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	count := 0
	for _, id := range ids {
		err := st.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			boom, err := lockBoomEventFields(ctx, tx, id)
			if err != nil {
				return err
			}
			state := social.State{ActiveEvent: boom.activeEvent, EventExpiresAt: boom.eventExpiresAt}
			next := social.ExpireIfPast(state, now)
			_, err = tx.Exec(ctx,
				`UPDATE booms SET active_event = $1, event_expires_at = $2 WHERE id = $3`,
				eventTypeString(next.ActiveEvent), next.EventExpiresAt, id)
			return err
		})
		if err != nil {
			continue
		}
		count++
	}
	return count, nil
}

type boomEventFields struct {
	activeEvent *social.Event
	eventExpiresAt *time.Time
}

func lockBoomEventFields(ctx context.Context, tx pgx.Tx, boomID int64) (boomEventFields, error) {
	var f boomEventFields
	var activeEvent *string
	err := tx.QueryRow(ctx,
		`SELECT active_event, event_expires_at FROM booms WHERE id = $1 FOR UPDATE`, boomID).Scan(&activeEvent, &f.eventExpiresAt)
	if err != nil {
		return boomEventFields{}, err
	}
	if activeEvent != nil {
		e := social.Event(*activeEvent)
		f.activeEvent = &e
	}
	return f, nil
}

func eventTypeString(e *social.Event) *string {
	if e == nil {
		return nil
	}
	s := string(*e)
	return &s
}
