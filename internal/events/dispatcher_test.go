package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string

	d.Subscribe(func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.StoreHash)
		return nil
	}, EventSignupCreated)
	d.Subscribe(func(_ context.Context, e Event) error {
		got = append(got, "second:"+string(e.Type))
		return nil
	}, EventSignupCreated, EventSignupResubmitted)

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSignupCreated, "abc", "sr-1", "req-1", nil)))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSignupResubmitted, "abc", "sr-1", "req-1", nil)))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventSignupStatusChanged, "abc", "sr-1", "req-1", nil)))
	assert.Equal(t, []string{"first:abc", "second:signup_created", "second:signup_resubmitted"}, got)
}

func TestDispatcherContinuesAfterHandlerFailure(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	called := false

	d.Subscribe(func(context.Context, Event) error { return boom }, EventSignupStatusChanged)
	d.Subscribe(func(context.Context, Event) error { panic("bad handler") }, EventSignupStatusChanged)
	d.Subscribe(func(context.Context, Event) error {
		called = true
		return nil
	}, EventSignupStatusChanged)

	err := d.Publish(context.Background(), NewEvent(EventSignupStatusChanged, "abc", "sr-1", "req-1", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panic: bad handler")
	assert.True(t, called)
}

func TestNewEventStampsIDAndTime(t *testing.T) {
	e := NewEvent(EventSignupCreated, "abc", "sr-1", "req-1", SignupStatusChangedPayload{})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "sr-1", e.SignupID)
	assert.Equal(t, "req-1", e.RequestID)
}
