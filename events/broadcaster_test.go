package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToUserSubscriber(t *testing.T) {
	b := New(zerolog.Nop())
	b.Start()
	defer b.Stop()

	userID := int64(42)
	ch, cancel := b.SubscribeUser(userID)
	defer cancel()

	b.Publish(Event{Type: TypeBalanceUpdate, UserID: &userID})

	select {
	case evt := <-ch:
		require.Equal(t, TypeBalanceUpdate, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := New(zerolog.Nop())
	b.Start()
	defer b.Stop()

	userID := int64(1)
	_, cancel := b.SubscribeUser(userID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*4; i++ {
			b.Publish(Event{Type: TypeBalanceUpdate, UserID: &userID})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}
