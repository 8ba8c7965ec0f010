package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var received []Event
	d.Subscribe(EventUserRegistered, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "e1", Type: EventUserRegistered, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "u1", received[0].UserID)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls int
	d.Subscribe(EventPasswordChanged, func(_ context.Context, _ Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventPasswordChanged, func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventPasswordChanged})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	err := d.Publish(context.Background(), Event{Type: EventEmailVerified})
	assert.NoError(t, err)
}
