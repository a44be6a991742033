package domain

import (
	"slices"
	"time"
)

// Notification is the durable record written for every delivery-eligible
// event so offline clients can backfill history. One row is written per
// (tenant, target role) scope; per-recipient read state is reconciled
// through the ReadBy user set.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	TenantID       string    `json:"tenant_id" dynamodbav:"tenant_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Module         string    `json:"module" dynamodbav:"module"`
	EntityID       string    `json:"entity_id,omitempty" dynamodbav:"entity_id"`
	ActionURL      string    `json:"action_url,omitempty" dynamodbav:"action_url"`
	TargetRole     string    `json:"target_role" dynamodbav:"target_role"`
	ActorName      string    `json:"actor_name" dynamodbav:"actor_name"`
	ActorRole      string    `json:"actor_role" dynamodbav:"actor_role"`
	Icon           string    `json:"icon,omitempty" dynamodbav:"icon"`
	Color          string    `json:"color,omitempty" dynamodbav:"color"`
	// ReadBy must be absent (not NULL) when empty so the mark-read ADD
	// expression can create the set on first use.
	ReadBy    []string  `json:"-" dynamodbav:"read_by,stringset,omitempty"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// VisibleTo reports whether the notification is in the user's tenant and
// addressed to the user's role.
func (n *Notification) VisibleTo(tenantID, role string) bool {
	if n.TenantID != tenantID {
		return false
	}
	return n.TargetRole == "" || n.TargetRole == TargetRoleAll || n.TargetRole == role
}

// ReadByUser reports whether the given user has marked the notification read.
func (n *Notification) ReadByUser(userID string) bool {
	return slices.Contains(n.ReadBy, userID)
}

// UserNotification is a notification projected for one recipient, carrying
// that recipient's read flag.
type UserNotification struct {
	Notification
	Read bool `json:"read"`
}

// NotificationFeed is the poll/query response shape: recent visible items
// plus the unread count within the fetched window.
type NotificationFeed struct {
	Items       []UserNotification `json:"items"`
	UnreadCount int                `json:"unread_count"`
}
