package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolstream/internal/domain"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n := args.Get(0); n != nil {
		return n.(*domain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListRecentByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, tenantID, limit)
	if v := args.Get(0); v != nil {
		return v.([]domain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) AddReadMarker(ctx context.Context, notificationID, userID string) error {
	return m.Called(ctx, notificationID, userID).Error(0)
}

func notif(id, tenant, role string, readBy ...string) domain.Notification {
	return domain.Notification{
		NotificationID: id,
		TenantID:       tenant,
		Title:          "title-" + id,
		Message:        "msg-" + id,
		TargetRole:     role,
		ReadBy:         readBy,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestAppend_DefaultsTargetRole(t *testing.T) {
	store := new(mockStore)
	var saved *domain.Notification
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Notification) }).
		Return(nil)

	svc := NewService(store)
	err := svc.Append(context.Background(), &domain.Event{
		Type:     "students:enrolled",
		Title:    "New student",
		TenantID: "t1",
		Actor:    domain.Actor{Name: "Ms. Reyes", Role: "admin"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TargetRoleAll, saved.TargetRole)
	assert.NotEmpty(t, saved.NotificationID)
	assert.Equal(t, "Ms. Reyes", saved.ActorName)
}

func TestListRecent_FiltersByRoleAndCountsUnread(t *testing.T) {
	store := new(mockStore)
	store.On("ListRecentByTenant", mock.Anything, "t1", int32(fetchWindow)).Return([]domain.Notification{
		notif("n1", "t1", "all"),
		notif("n2", "t1", "teacher"),
		notif("n3", "t1", "student"),        // not visible to a teacher
		notif("n4", "t1", "all", "u1"),      // already read by u1
		notif("n5", "t1", "teacher", "u99"), // read by someone else only
	}, nil)

	svc := NewService(store)
	feed, err := svc.ListRecent(context.Background(), "u1", "t1", "teacher", 10)

	require.NoError(t, err)
	require.Len(t, feed.Items, 4)
	assert.Equal(t, 3, feed.UnreadCount)
	for _, it := range feed.Items {
		assert.NotEqual(t, "student", it.TargetRole)
	}
	// Per-recipient read flags.
	byID := map[string]bool{}
	for _, it := range feed.Items {
		byID[it.NotificationID] = it.Read
	}
	assert.True(t, byID["n4"])
	assert.False(t, byID["n5"])
}

func TestListRecent_ClampsLimit(t *testing.T) {
	var many []domain.Notification
	for i := 0; i < 100; i++ {
		many = append(many, notif(string(rune('a'+i%26))+"-n", "t1", "all"))
	}
	store := new(mockStore)
	store.On("ListRecentByTenant", mock.Anything, "t1", int32(fetchWindow)).Return(many, nil)

	svc := NewService(store)

	feed, err := svc.ListRecent(context.Background(), "u1", "t1", "admin", 0)
	require.NoError(t, err)
	assert.Len(t, feed.Items, DefaultLimit)

	feed, err = svc.ListRecent(context.Background(), "u1", "t1", "admin", 500)
	require.NoError(t, err)
	assert.Len(t, feed.Items, MaxLimit)

	// The unread count covers the whole window, not just the page.
	assert.Equal(t, 100, feed.UnreadCount)
}

func TestMarkRead_RejectsInvisibleNotification(t *testing.T) {
	store := new(mockStore)
	n := notif("n1", "t1", "teacher")
	store.On("Get", mock.Anything, "n1").Return(&n, nil)

	svc := NewService(store)

	err := svc.MarkRead(context.Background(), "n1", "u1", "t1", "student")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.MarkRead(context.Background(), "n1", "u1", "t2", "teacher")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	store.AssertNotCalled(t, "AddReadMarker", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkRead_VisibleNotificationAddsMarker(t *testing.T) {
	store := new(mockStore)
	n := notif("n1", "t1", "teacher")
	store.On("Get", mock.Anything, "n1").Return(&n, nil)
	store.On("AddReadMarker", mock.Anything, "n1", "u1").Return(nil).Once()

	svc := NewService(store)
	require.NoError(t, svc.MarkRead(context.Background(), "n1", "u1", "t1", "teacher"))
	store.AssertExpectations(t)
}

func TestMarkAllRead_SkipsAlreadyRead(t *testing.T) {
	store := new(mockStore)
	store.On("ListRecentByTenant", mock.Anything, "t1", int32(fetchWindow)).Return([]domain.Notification{
		notif("n1", "t1", "all"),
		notif("n2", "t1", "all", "u1"), // already read, must be skipped
		notif("n3", "t1", "teacher"),
	}, nil)
	store.On("AddReadMarker", mock.Anything, "n1", "u1").Return(nil).Once()
	store.On("AddReadMarker", mock.Anything, "n3", "u1").Return(nil).Once()

	svc := NewService(store)
	require.NoError(t, svc.MarkAllRead(context.Background(), "u1", "t1", "teacher"))
	store.AssertExpectations(t)
}

func TestMarkAllRead_CollectsFirstErrorButContinues(t *testing.T) {
	store := new(mockStore)
	store.On("ListRecentByTenant", mock.Anything, "t1", int32(fetchWindow)).Return([]domain.Notification{
		notif("n1", "t1", "all"),
		notif("n2", "t1", "all"),
	}, nil)
	boom := errors.New("conditional check failed")
	store.On("AddReadMarker", mock.Anything, "n1", "u1").Return(boom).Once()
	store.On("AddReadMarker", mock.Anything, "n2", "u1").Return(nil).Once()

	svc := NewService(store)
	err := svc.MarkAllRead(context.Background(), "u1", "t1", "teacher")
	assert.ErrorIs(t, err, boom)
	store.AssertExpectations(t)
}
