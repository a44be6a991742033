package http

import (
	"context"
	"time"

	"github.com/schoolstream/internal/domain"
	jwtinfra "github.com/schoolstream/internal/infrastructure/jwt"
	"github.com/schoolstream/internal/realtime"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error)
	SoftDelete(ctx context.Context, userID string) error
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

// NotificationRepository is the minimal interface the router requires from the
// durable notification store.
type NotificationRepository interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListRecentByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Notification, error)
	AddReadMarker(ctx context.Context, notificationID, userID string) error
}

// AnnouncementRepository is the minimal interface the router requires from an
// announcement store.
type AnnouncementRepository interface {
	Put(ctx context.Context, a *domain.Announcement) error
	Get(ctx context.Context, announcementID string) (*domain.Announcement, error)
	ListByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error)
	Delete(ctx context.Context, announcementID string) error
}

// AttachmentStore is the minimal interface the router requires from object
// storage for announcement attachments.
type AttachmentStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Emitter publishes activity events to live sessions and the durable store.
type Emitter interface {
	Emit(ctx context.Context, ev *domain.Event)
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	SessionRepo      SessionRepository
	NotificationRepo NotificationRepository
	AnnouncementRepo AnnouncementRepository
	AttachmentStore  AttachmentStore
	JWTProvider      *jwtinfra.Provider
	Hub              *realtime.Hub
	Emitter          Emitter
}
