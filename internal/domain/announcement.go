package domain

import "time"

// Announcement is a tenant-wide (or role-scoped) notice posted by an admin.
// Posting one is the canonical business mutation that feeds the notification
// pipeline: the committed write is followed by a live event and a durable
// notification row.
type Announcement struct {
	AnnouncementID string    `json:"id" dynamodbav:"announcement_id"`
	TenantID       string    `json:"tenant_id" dynamodbav:"tenant_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Body           string    `json:"body" dynamodbav:"body"`
	TargetRole     string    `json:"target_role" dynamodbav:"target_role"`
	Urgent         bool      `json:"urgent" dynamodbav:"urgent"`
	AttachmentKey  string    `json:"-" dynamodbav:"attachment_key"`
	AttachmentName string    `json:"attachment_name,omitempty" dynamodbav:"attachment_name"`
	PostedByID     string    `json:"posted_by_id" dynamodbav:"posted_by_id"`
	PostedByName   string    `json:"posted_by_name" dynamodbav:"posted_by_name"`
	PostedByRole   string    `json:"posted_by_role" dynamodbav:"posted_by_role"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`

	// AttachmentURL is a presigned download link resolved at read time.
	AttachmentURL string `json:"attachment_url,omitempty" dynamodbav:"-"`
}

type CreateAnnouncementRequest struct {
	Title      string `json:"title" validate:"required"`
	Body       string `json:"body" validate:"required"`
	TargetRole string `json:"target_role"`
	Urgent     bool   `json:"urgent"`
	// AttachmentName and AttachmentData carry an optional base64-encoded
	// attachment (e.g. a notice PDF).
	AttachmentName string `json:"attachment_name"`
	AttachmentData string `json:"attachment_data"`
}
