// Package notification is the durable notification store's query and
// read-state surface. It is the backfill path for clients that were offline
// while events went out over the live channel.
package notification

import (
	"context"
	"fmt"

	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/pkg/id"
)

const (
	// DefaultLimit and MaxLimit bound the feed size clients may request.
	DefaultLimit = 20
	MaxLimit     = 50

	// fetchWindow is how many recent tenant rows are scanned to fill a feed
	// and compute the unread count. Role filtering happens after the fetch,
	// so the window is deliberately larger than any allowed limit.
	fetchWindow = 200
)

// Store is the persistence interface the service requires.
type Store interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListRecentByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Notification, error)
	AddReadMarker(ctx context.Context, notificationID, userID string) error
}

type Service interface {
	// Append persists one durable row for a delivery-eligible event.
	Append(ctx context.Context, ev *domain.Event) error
	// ListRecent returns the newest notifications visible to the user plus
	// the unread count within the fetched window.
	ListRecent(ctx context.Context, userID, tenantID, role string, limit int) (*domain.NotificationFeed, error)
	// MarkRead transitions one notification's read state for the user.
	MarkRead(ctx context.Context, notificationID, userID, tenantID, role string) error
	// MarkAllRead marks every currently-unread visible notification read.
	// Calling it twice leaves the same end state.
	MarkAllRead(ctx context.Context, userID, tenantID, role string) error
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

func (s *service) Append(ctx context.Context, ev *domain.Event) error {
	targetRole := ev.TargetRole
	if targetRole == "" {
		targetRole = domain.TargetRoleAll
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		TenantID:       ev.TenantID,
		Type:           ev.Type,
		Title:          ev.Title,
		Message:        ev.Message,
		Module:         ev.Module,
		EntityID:       ev.EntityID,
		ActionURL:      ev.ActionURL,
		TargetRole:     targetRole,
		ActorName:      ev.Actor.Name,
		ActorRole:      ev.Actor.Role,
		Icon:           ev.Icon,
		Color:          ev.Color,
		CreatedAt:      ev.Timestamp,
	}
	return s.store.Put(ctx, n)
}

func (s *service) ListRecent(ctx context.Context, userID, tenantID, role string, limit int) (*domain.NotificationFeed, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	visible, err := s.listVisible(ctx, tenantID, role)
	if err != nil {
		return nil, err
	}

	feed := &domain.NotificationFeed{Items: []domain.UserNotification{}}
	for _, n := range visible {
		read := n.ReadByUser(userID)
		if !read {
			feed.UnreadCount++
		}
		if len(feed.Items) < limit {
			feed.Items = append(feed.Items, domain.UserNotification{Notification: n, Read: read})
		}
	}
	return feed, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID, userID, tenantID, role string) error {
	n, err := s.store.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if !n.VisibleTo(tenantID, role) {
		return fmt.Errorf("notification not visible to user: %w", domain.ErrForbidden)
	}
	return s.store.AddReadMarker(ctx, notificationID, userID)
}

func (s *service) MarkAllRead(ctx context.Context, userID, tenantID, role string) error {
	visible, err := s.listVisible(ctx, tenantID, role)
	if err != nil {
		return err
	}
	var firstErr error
	for _, n := range visible {
		if n.ReadByUser(userID) {
			continue
		}
		if err := s.store.AddReadMarker(ctx, n.NotificationID, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// listVisible fetches the recent tenant window and filters it down to the
// rows addressed to the caller's role. Every query is tenant-scoped.
func (s *service) listVisible(ctx context.Context, tenantID, role string) ([]domain.Notification, error) {
	recent, err := s.store.ListRecentByTenant(ctx, tenantID, fetchWindow)
	if err != nil {
		return nil, err
	}
	visible := recent[:0]
	for _, n := range recent {
		if n.VisibleTo(tenantID, role) {
			visible = append(visible, n)
		}
	}
	return visible, nil
}
