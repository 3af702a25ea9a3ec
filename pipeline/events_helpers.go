package pipeline

import (
	"github.com/booms-platform/booms-core/events"
	"github.com/booms-platform/booms-core/money"
	"github.com/booms-platform/booms-core/social"
)

func eventsBalanceUpdate(userID int64, newBalance money.Decimal) events.Event {
	return events.Event{
		Type: events.TypeBalanceUpdate,
		UserID: &userID,
		Payload: map[string]any{
			"available": newBalance.String(),
		},
	}
}

func eventsTreasuryUpdate(delta money.Decimal) events.Event {
	return events.Event{
		Type: events.TypeTreasuryUpdate,
		Payload: map[string]any{
			"delta": delta.String(),
		},
	}
}

func eventsSocialUpdate(boomID int64, res social.Result) events.Event {
	evt := events.Event{
		Type: events.TypeSocialValueUpdate,
		BoomID: &boomID,
		Payload: map[string]any{
			"old_micro_value": res.OldMicroValue.String(),
			"new_micro_value": res.NewMicroValue.String(),
			"delta": res.Delta.String(),
		},
	}
	return evt
}

func eventsSocialEvent(boomID int64, res social.Result) *events.Event {
	if res.Event == nil {
		return nil
	}
	evt := events.Event{
		Type: events.TypeSocialEvent,
		BoomID: &boomID,
		Payload: map[string]any{
			"event": string(*res.Event),
		},
	}
	return &evt
}

func eventsUserNotification(userID int64, kind string, payload map[string]any) events.Event {
	payload["kind"] = kind
	return events.Event{
		Type: events.TypeUserNotification,
		UserID: &userID,
		Payload: payload,
	}
}
