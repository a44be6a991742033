// Package announcement implements the announcements feature. Posting an
// announcement is the canonical producer for the notification pipeline: the
// durable write commits first, then a live event is emitted fire-and-forget.
package announcement

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/logging"
	"github.com/schoolstream/internal/pkg/id"
	"github.com/schoolstream/internal/pkg/validate"
)

// presignTTL bounds how long attachment download links stay valid.
const presignTTL = 15 * time.Minute

// Store is the persistence interface the service requires.
type Store interface {
	Put(ctx context.Context, a *domain.Announcement) error
	Get(ctx context.Context, announcementID string) (*domain.Announcement, error)
	ListByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error)
	Delete(ctx context.Context, announcementID string) error
}

// AttachmentStore handles announcement attachments in object storage.
type AttachmentStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// EventEmitter publishes activity events. Emit never returns an error;
// delivery is best effort and must not affect the caller.
type EventEmitter interface {
	Emit(ctx context.Context, ev *domain.Event)
}

// UserLookup resolves the acting user so events carry a display name rather
// than a raw id.
type UserLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type Service interface {
	Create(ctx context.Context, actor domain.Actor, tenantID string, req domain.CreateAnnouncementRequest) (*domain.Announcement, error)
	List(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error)
	Delete(ctx context.Context, actor domain.Actor, tenantID, announcementID string) error
}

type service struct {
	repo        Store
	attachments AttachmentStore
	emitter     EventEmitter
	users       UserLookup
}

// NewService creates the announcement service. attachments may be nil when no
// object storage is configured; attachment requests then fail with
// ErrBadRequest.
func NewService(repo Store, attachments AttachmentStore, emitter EventEmitter, users UserLookup) Service {
	return &service{repo: repo, attachments: attachments, emitter: emitter, users: users}
}

func (s *service) Create(ctx context.Context, actor domain.Actor, tenantID string, req domain.CreateAnnouncementRequest) (*domain.Announcement, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	s.resolveActor(ctx, &actor)
	targetRole := req.TargetRole
	if targetRole == "" {
		targetRole = domain.TargetRoleAll
	}
	if targetRole != domain.TargetRoleAll && !domain.ValidRole(targetRole) {
		return nil, fmt.Errorf("unknown target role %q: %w", targetRole, domain.ErrBadRequest)
	}

	a := &domain.Announcement{
		AnnouncementID: id.New(),
		TenantID:       tenantID,
		Title:          req.Title,
		Body:           req.Body,
		TargetRole:     targetRole,
		Urgent:         req.Urgent,
		PostedByID:     actor.ID,
		PostedByName:   actor.Name,
		PostedByRole:   actor.Role,
		CreatedAt:      time.Now().UTC(),
	}

	if req.AttachmentData != "" {
		if s.attachments == nil {
			return nil, fmt.Errorf("attachments not configured: %w", domain.ErrBadRequest)
		}
		if req.AttachmentName == "" {
			return nil, fmt.Errorf("attachment_name required with attachment_data: %w", domain.ErrBadRequest)
		}
		key := path.Join("announcements", tenantID, a.AnnouncementID+"-"+req.AttachmentName)
		if _, err := s.attachments.UploadBase64(ctx, key, req.AttachmentData); err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		a.AttachmentKey = key
		a.AttachmentName = req.AttachmentName
	}

	if err := s.repo.Put(ctx, a); err != nil {
		// The write failed; don't leave an orphaned attachment behind.
		if a.AttachmentKey != "" {
			if derr := s.attachments.Delete(ctx, a.AttachmentKey); derr != nil {
				logging.Warn().Err(derr).Str("key", a.AttachmentKey).Msg("orphaned attachment cleanup failed")
			}
		}
		return nil, err
	}

	s.emitter.Emit(ctx, &domain.Event{
		Type:       "announcement:created",
		Title:      a.Title,
		Message:    a.Body,
		Module:     domain.ModuleCommunication,
		EntityID:   a.AnnouncementID,
		ActionURL:  "/announcements/" + a.AnnouncementID,
		TargetRole: a.TargetRole,
		TenantID:   a.TenantID,
		Actor:      actor,
		Urgent:     a.Urgent,
	})
	return a, nil
}

// resolveActor fills in the actor's display name from the user record.
// A lookup failure leaves the name empty rather than failing the mutation.
func (s *service) resolveActor(ctx context.Context, actor *domain.Actor) {
	if actor.Name != "" || s.users == nil {
		return
	}
	u, err := s.users.Get(ctx, actor.ID)
	if err != nil {
		logging.Warn().Err(err).Str("user", actor.ID).Msg("actor lookup failed")
		return
	}
	actor.Name = u.DisplayName()
}

func (s *service) List(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error) {
	items, err := s.repo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].AttachmentKey == "" || s.attachments == nil {
			continue
		}
		url, err := s.attachments.PresignedURL(ctx, items[i].AttachmentKey, presignTTL)
		if err != nil {
			logging.Warn().Err(err).Str("key", items[i].AttachmentKey).Msg("presign attachment failed")
			continue
		}
		items[i].AttachmentURL = url
	}
	return items, nil
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, tenantID, announcementID string) error {
	s.resolveActor(ctx, &actor)
	a, err := s.repo.Get(ctx, announcementID)
	if err != nil {
		return err
	}
	if a.TenantID != tenantID {
		return fmt.Errorf("announcement not found: %w", domain.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, announcementID); err != nil {
		return err
	}
	if a.AttachmentKey != "" && s.attachments != nil {
		if derr := s.attachments.Delete(ctx, a.AttachmentKey); derr != nil {
			logging.Warn().Err(derr).Str("key", a.AttachmentKey).Msg("attachment cleanup failed")
		}
	}
	s.emitter.Emit(ctx, &domain.Event{
		Type:       "announcement:deleted",
		Title:      "Announcement removed",
		Message:    a.Title,
		Module:     domain.ModuleCommunication,
		EntityID:   a.AnnouncementID,
		TargetRole: a.TargetRole,
		TenantID:   a.TenantID,
		Actor:      actor,
	})
	return nil
}
