// Package interaction implements the interaction recorder of /
// component C11: likes, shares, views, and comments on a BOOM are logged
// as raw Interaction rows and fed into the social-value engine, subject to
// a dedup window on the high-frequency action types.
package interaction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/events"
	"github.com/booms-platform/booms-core/inventory"
	"github.com/booms-platform/booms-core/social"
	"github.com/booms-platform/booms-core/store"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Action is one of the action_type values names for an
// Interaction row.
type Action string

const (
	ActionLike Action = "like"
	ActionShare Action = "share"
	ActionView Action = "view"
	ActionComment Action = "comment"
	ActionShareInternal Action = "share_internal"
)

// toSocial maps an interaction's action_type to the social-engine action
// whose weight table it should be charged against.
// share_internal (the gift-acceptance credit of step 4) uses
// the "transfer" weight — the same 0.002%-of-market-value rate as a free
// share.
var toSocial = map[Action]social.Action{
	ActionLike: social.ActionLike,
	ActionShare: social.ActionShare,
	ActionView: social.ActionView,
	ActionComment: social.ActionComment,
	ActionShareInternal: social.ActionTransfer,
}

// dedupWindow bounds how often a given (user, boom, action_type) tuple may
// emit a fresh micro-impact for the listed action types — the Supplemented
// Feature #4 policy; names the `processed` flag but does not
// specify a window itself.
var dedupWindow = map[Action]time.Duration{
	ActionLike: 60 * time.Second,
	ActionView: 60 * time.Second,
}

// Recorder wires the collaborators the standalone /interactions/ endpoint
// needs: the store for the recording transaction and the event
// broadcaster for the post-commit social-value update.
type Recorder struct {
	Store *store.Store
	Events *events.Broadcaster
	Logger zerolog.Logger
}

// New builds a Recorder.
func New(s *store.Store, ev *events.Broadcaster, logger zerolog.Logger) *Recorder {
	return &Recorder{Store: s, Events: ev, Logger: logger.With().Str("component", "interaction").Logger()}
}

// Result is the typed outcome of recording one interaction.
type Result struct {
	Applied bool
	Social social.Result
}

// RecordInput is the request shape for POST /interactions/.
type RecordInput struct {
	UserID int64
	BoomID int64
	Action Action
	Metadata map[string]any
}

// Record runs the interaction-recording pipeline as its own transaction —
// used by the standalone HTTP endpoint. Pipelines that already hold a
// BOOM lock (e.g. the gift-acceptance internal-share credit) should call
// Apply directly against their own transaction instead.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (Result, error) {
	var result Result
	err := r.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		boom, err := inventory.LockBoom(ctx, tx, in.BoomID)
		if err != nil {
			return err
		}
		updated, res, applied, err := Apply(ctx, tx, boom, in.UserID, in.Action, in.Metadata, time.Now().UTC())
		if err != nil {
			return err
		}
		result = Result{Applied: applied, Social: res}
		if !applied {
			return nil
		}
		return inventory.ApplySocialMutation(ctx, tx, updated)
	})
	if err != nil {
		return Result{}, err
	}
	if result.Applied {
		r.Events.Publish(events.Event{
			Type: events.TypeSocialValueUpdate,
			BoomID: &in.BoomID,
			Payload: map[string]any{"delta": result.Social.Delta.String()},
		})
	}
	return result, nil
}

// Apply inserts the Interaction row and, unless suppressed by the dedup
// window, applies its social impact to boom (already locked by the
// caller). It returns the boom with the social mutation applied in memory
// — the caller is responsible for persisting it via
// inventory.ApplySocialMutation inside the same transaction.
func Apply(ctx context.Context, tx pgx.Tx, boom inventory.Boom, userID int64, action Action, metadata map[string]any, now time.Time) (inventory.Boom, social.Result, bool, error) {
	socialAction, ok := toSocial[action]
	if !ok {
		return boom, social.Result{}, false, apperr.New(apperr.CodeValidation, "unknown interaction action_type")
	}

	if window, limited := dedupWindow[action]; limited {
		recent, err := recentlyRecorded(ctx, tx, userID, boom.ID, action, now.Add(-window))
		if err != nil {
			return boom, social.Result{}, false, err
		}
		if recent {
			if _, err := insertInteraction(ctx, tx, userID, boom.ID, action, metadata, false); err != nil {
				return boom, social.Result{}, false, err
			}
			return boom, social.Result{}, false, nil
		}
	}

	if _, err := insertInteraction(ctx, tx, userID, boom.ID, action, metadata, true); err != nil {
		return boom, social.Result{}, false, err
	}

	state := boomToSocialState(boom)
	nextState, res := social.ApplyAction(state, socialAction, social.Metadata{}, now)
	boom = applySocialStateToBoom(boom, nextState)
	return boom, res, true, nil
}

func recentlyRecorded(ctx context.Context, tx pgx.Tx, userID, boomID int64, action Action, since time.Time) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM interactions
			WHERE user_id = $1 AND boom_id = $2 AND action_type = $3
			 AND processed = true AND created_at > $4
		)`, userID, boomID, string(action), since).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeIntegrityError, "failed to check interaction dedup window", err)
	}
	return exists, nil
}

// boomToSocialState/applySocialStateToBoom mirror pipeline/social_bridge.go
// — the pure social engine never depends on the persistence layer, so
// every caller that needs to bridge inventory.Boom into social.State
// carries its own small projection.
func boomToSocialState(b inventory.Boom) social.State {
	var activeEvent *social.Event
	if b.ActiveEvent != nil {
		e := social.Event(*b.ActiveEvent)
		activeEvent = &e
	}
	return social.State{
		BasePrice: b.BasePrice,
		CurrentSocialValue: b.CurrentSocialValue,
		AppliedMicroValue: b.AppliedMicroValue,
		SocialAccumulator: b.SocialAccumulator,
		PalierThreshold: b.PalierThreshold,
		PalierLevel: b.PalierLevel,
		ShareCount: b.ShareCount,
		ShareCount24h: b.ShareCount24h,
		InteractionCount: b.InteractionCount,
		TreasuryPool: b.TreasuryPool,
		RedistributionPool: b.RedistributionPool,
		LastInteractionAt: b.LastInteractionAt,
		LastShareAt: b.LastShareAt,
		CreatedAt: b.CreatedAt,
		ActiveEvent: activeEvent,
		EventExpiresAt: b.EventExpiresAt,
	}
}

func applySocialStateToBoom(b inventory.Boom, s social.State) inventory.Boom {
	b.CurrentSocialValue = s.CurrentSocialValue
	b.AppliedMicroValue = s.AppliedMicroValue
	b.SocialAccumulator = s.SocialAccumulator
	b.PalierLevel = s.PalierLevel
	b.ShareCount = s.ShareCount
	b.ShareCount24h = s.ShareCount24h
	b.InteractionCount = s.InteractionCount
	b.TreasuryPool = s.TreasuryPool
	b.RedistributionPool = s.RedistributionPool
	b.LastInteractionAt = s.LastInteractionAt
	b.LastShareAt = s.LastShareAt
	if s.ActiveEvent != nil {
		e := inventory.EventType(*s.ActiveEvent)
		b.ActiveEvent = &e
	} else {
		b.ActiveEvent = nil
	}
	b.EventExpiresAt = s.EventExpiresAt
	return b
}

func insertInteraction(ctx context.Context, tx pgx.Tx, userID, boomID int64, action Action, metadata map[string]any, processed bool) (int64, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeValidation, "invalid interaction metadata", err)
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO interactions (user_id, boom_id, action_type, metadata, processed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userID, boomID, string(action), raw, processed).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeIntegrityError, "failed to insert interaction", err)
	}
	return id, nil
}
