package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/schoolstream/internal/domain"
)

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) Broadcast(ev *domain.Event) {
	m.Called(ev)
}

type mockAppender struct{ mock.Mock }

func (m *mockAppender) Append(ctx context.Context, ev *domain.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func TestEmitter_BroadcastsAndPersists(t *testing.T) {
	hub := new(mockBroadcaster)
	store := new(mockAppender)
	hub.On("Broadcast", mock.AnythingOfType("*domain.Event")).Once()
	store.On("Append", mock.Anything, mock.AnythingOfType("*domain.Event")).Return(nil).Once()

	e := NewEmitter(hub, store, nil)
	e.Emit(context.Background(), &domain.Event{
		Type:     "attendance:marked",
		Module:   domain.ModuleAttendance,
		TenantID: "t1",
		Actor:    domain.Actor{ID: "u1"},
	})
	e.Flush()

	hub.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestEmitter_StampsTimestampAndModuleMeta(t *testing.T) {
	hub := new(mockBroadcaster)
	store := new(mockAppender)
	var seen *domain.Event
	hub.On("Broadcast", mock.AnythingOfType("*domain.Event")).Run(func(args mock.Arguments) {
		seen = args.Get(0).(*domain.Event)
	}).Once()
	store.On("Append", mock.Anything, mock.Anything).Return(nil)

	e := NewEmitter(hub, store, nil)
	e.Emit(context.Background(), &domain.Event{
		Type:     "fees:paid",
		Module:   domain.ModuleFees,
		TenantID: "t1",
	})
	e.Flush()

	assert.False(t, seen.Timestamp.IsZero())
	assert.Equal(t, "credit-card", seen.Icon)
	assert.Equal(t, "green", seen.Color)
}

func TestEmitter_UnknownModuleGetsDefaultMeta(t *testing.T) {
	hub := new(mockBroadcaster)
	store := new(mockAppender)
	var seen *domain.Event
	hub.On("Broadcast", mock.Anything).Run(func(args mock.Arguments) {
		seen = args.Get(0).(*domain.Event)
	}).Once()
	store.On("Append", mock.Anything, mock.Anything).Return(nil)

	e := NewEmitter(hub, store, nil)
	e.Emit(context.Background(), &domain.Event{Type: "x", Module: "unknown", TenantID: "t1"})
	e.Flush()

	assert.Equal(t, "bell", seen.Icon)
	assert.Equal(t, "gray", seen.Color)
}

func TestEmitter_StoreFailureDoesNotPropagate(t *testing.T) {
	hub := new(mockBroadcaster)
	store := new(mockAppender)
	hub.On("Broadcast", mock.Anything).Once()
	store.On("Append", mock.Anything, mock.Anything).Return(errors.New("dynamo down")).Once()

	e := NewEmitter(hub, store, nil)
	// Emit has no error return at all; the assertion is that Flush returns
	// and nothing panics even when the durable write fails.
	e.Emit(context.Background(), &domain.Event{Type: "x", TenantID: "t1"})
	e.Flush()

	hub.AssertExpectations(t)
	store.AssertExpectations(t)
}

type mockRelay struct{ mock.Mock }

func (m *mockRelay) Publish(ctx context.Context, subject, message string) error {
	return m.Called(ctx, subject, message).Error(0)
}

func TestEmitter_UrgentEventsHitTheRelay(t *testing.T) {
	hub := new(mockBroadcaster)
	store := new(mockAppender)
	relay := new(mockRelay)
	hub.On("Broadcast", mock.Anything)
	store.On("Append", mock.Anything, mock.Anything).Return(nil)
	relay.On("Publish", mock.Anything, "Fire drill", "Assemble outside").Return(nil).Once()

	e := NewEmitter(hub, store, relay)
	e.Emit(context.Background(), &domain.Event{
		Type:     "announcement:created",
		Title:    "Fire drill",
		Message:  "Assemble outside",
		TenantID: "t1",
		Urgent:   true,
	})
	e.Emit(context.Background(), &domain.Event{
		Type:     "announcement:created",
		Title:    "Lunch menu",
		Message:  "Pizza",
		TenantID: "t1",
	})
	e.Flush()

	relay.AssertExpectations(t)
	relay.AssertNumberOfCalls(t, "Publish", 1)
}
