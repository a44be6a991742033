package announcement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/schoolstream/internal/domain"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Put(ctx context.Context, a *domain.Announcement) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) Get(ctx context.Context, announcementID string) (*domain.Announcement, error) {
	args := m.Called(ctx, announcementID)
	if a := args.Get(0); a != nil {
		return a.(*domain.Announcement), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error) {
	args := m.Called(ctx, tenantID, limit)
	if v := args.Get(0); v != nil {
		return v.([]domain.Announcement), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) Delete(ctx context.Context, announcementID string) error {
	return m.Called(ctx, announcementID).Error(0)
}

type mockAttachments struct{ mock.Mock }

func (m *mockAttachments) UploadBase64(ctx context.Context, key, b64Data string) (string, error) {
	args := m.Called(ctx, key, b64Data)
	return args.String(0), args.Error(1)
}

func (m *mockAttachments) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockAttachments) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockEmitter struct{ mock.Mock }

func (m *mockEmitter) Emit(ctx context.Context, ev *domain.Event) {
	m.Called(ctx, ev)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func adminActor() domain.Actor {
	return domain.Actor{ID: "admin1", Role: domain.RoleAdmin}
}

func TestCreate_PersistsThenEmits(t *testing.T) {
	repo := new(mockRepo)
	emitter := new(mockEmitter)
	users := new(mockUsers)

	users.On("Get", mock.Anything, "admin1").Return(&domain.User{
		UserID: "admin1", FirstName: "Ada", LastName: "Okafor", Role: domain.RoleAdmin,
	}, nil)
	var saved *domain.Announcement
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Announcement")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Announcement) }).
		Return(nil)
	var emitted *domain.Event
	emitter.On("Emit", mock.Anything, mock.AnythingOfType("*domain.Event")).
		Run(func(args mock.Arguments) { emitted = args.Get(1).(*domain.Event) })

	svc := NewService(repo, nil, emitter, users)
	a, err := svc.Create(context.Background(), adminActor(), "t1", domain.CreateAnnouncementRequest{
		Title:  "Sports day",
		Body:   "Friday on the main field",
		Urgent: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "t1", saved.TenantID)
	assert.Equal(t, domain.TargetRoleAll, saved.TargetRole)
	assert.Equal(t, "Ada Okafor", saved.PostedByName)

	require.NotNil(t, emitted)
	assert.Equal(t, "announcement:created", emitted.Type)
	assert.Equal(t, domain.ModuleCommunication, emitted.Module)
	assert.Equal(t, a.AnnouncementID, emitted.EntityID)
	assert.Equal(t, "/announcements/"+a.AnnouncementID, emitted.ActionURL)
	assert.True(t, emitted.Urgent)
	assert.Equal(t, "Ada Okafor", emitted.Actor.Name)
}

func TestCreate_RejectsMissingFields(t *testing.T) {
	svc := NewService(new(mockRepo), nil, new(mockEmitter), new(mockUsers))
	_, err := svc.Create(context.Background(), adminActor(), "t1", domain.CreateAnnouncementRequest{Title: "no body"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_RejectsUnknownTargetRole(t *testing.T) {
	users := new(mockUsers)
	users.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: "admin1"}, nil)
	svc := NewService(new(mockRepo), nil, new(mockEmitter), users)
	_, err := svc.Create(context.Background(), adminActor(), "t1", domain.CreateAnnouncementRequest{
		Title: "x", Body: "y", TargetRole: "janitor",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_AttachmentWithoutStoreRejected(t *testing.T) {
	users := new(mockUsers)
	users.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: "admin1"}, nil)
	svc := NewService(new(mockRepo), nil, new(mockEmitter), users)
	_, err := svc.Create(context.Background(), adminActor(), "t1", domain.CreateAnnouncementRequest{
		Title: "x", Body: "y", AttachmentName: "notice.pdf", AttachmentData: "aGVsbG8=",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_UploadsAttachment(t *testing.T) {
	repo := new(mockRepo)
	attachments := new(mockAttachments)
	emitter := new(mockEmitter)
	users := new(mockUsers)

	users.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: "admin1", Username: "admin"}, nil)
	attachments.On("UploadBase64", mock.Anything, mock.MatchedBy(func(key string) bool {
		return len(key) > 0
	}), "aGVsbG8=").Return("s3://bucket/key", nil)
	var saved *domain.Announcement
	repo.On("Put", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Announcement) }).
		Return(nil)
	emitter.On("Emit", mock.Anything, mock.Anything)

	svc := NewService(repo, attachments, emitter, users)
	_, err := svc.Create(context.Background(), adminActor(), "t1", domain.CreateAnnouncementRequest{
		Title: "x", Body: "y", AttachmentName: "notice.pdf", AttachmentData: "aGVsbG8=",
	})

	require.NoError(t, err)
	assert.Equal(t, "notice.pdf", saved.AttachmentName)
	assert.NotEmpty(t, saved.AttachmentKey)
	attachments.AssertExpectations(t)
}

func TestList_ResolvesPresignedURLs(t *testing.T) {
	repo := new(mockRepo)
	attachments := new(mockAttachments)

	repo.On("ListByTenant", mock.Anything, "t1", int32(10)).Return([]domain.Announcement{
		{AnnouncementID: "a1", TenantID: "t1", AttachmentKey: "announcements/t1/a1-notice.pdf"},
		{AnnouncementID: "a2", TenantID: "t1"},
	}, nil)
	attachments.On("PresignedURL", mock.Anything, "announcements/t1/a1-notice.pdf", presignTTL).
		Return("https://signed.example/notice.pdf", nil).Once()

	svc := NewService(repo, attachments, new(mockEmitter), new(mockUsers))
	items, err := svc.List(context.Background(), "t1", 10)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://signed.example/notice.pdf", items[0].AttachmentURL)
	assert.Empty(t, items[1].AttachmentURL)
	attachments.AssertExpectations(t)
}

func TestDelete_TenantMismatchIsNotFound(t *testing.T) {
	repo := new(mockRepo)
	users := new(mockUsers)
	users.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: "admin1"}, nil)
	repo.On("Get", mock.Anything, "a1").Return(&domain.Announcement{AnnouncementID: "a1", TenantID: "t2"}, nil)

	svc := NewService(repo, nil, new(mockEmitter), users)
	err := svc.Delete(context.Background(), adminActor(), "t1", "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_RemovesRowAttachmentAndEmits(t *testing.T) {
	repo := new(mockRepo)
	attachments := new(mockAttachments)
	emitter := new(mockEmitter)
	users := new(mockUsers)

	users.On("Get", mock.Anything, mock.Anything).Return(&domain.User{UserID: "admin1", Username: "admin"}, nil)
	repo.On("Get", mock.Anything, "a1").Return(&domain.Announcement{
		AnnouncementID: "a1", TenantID: "t1", Title: "Old notice", TargetRole: "all",
		AttachmentKey: "announcements/t1/a1-notice.pdf",
	}, nil)
	repo.On("Delete", mock.Anything, "a1").Return(nil).Once()
	attachments.On("Delete", mock.Anything, "announcements/t1/a1-notice.pdf").Return(nil).Once()
	var emitted *domain.Event
	emitter.On("Emit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { emitted = args.Get(1).(*domain.Event) })

	svc := NewService(repo, attachments, emitter, users)
	require.NoError(t, svc.Delete(context.Background(), adminActor(), "t1", "a1"))

	repo.AssertExpectations(t)
	attachments.AssertExpectations(t)
	require.NotNil(t, emitted)
	assert.Equal(t, "announcement:deleted", emitted.Type)
	assert.Equal(t, "Old notice", emitted.Message)
}
