package domain

import "time"

// Session is the server-side record backing one authenticated login. Live
// WebSocket admission re-verifies identity against this row, never against
// client-supplied claims alone.
type Session struct {
	SessionID        string    `json:"id" dynamodbav:"session_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	TenantID         string    `json:"tenant_id" dynamodbav:"tenant_id"`
	Role             string    `json:"role" dynamodbav:"role"`
	Enable           bool      `json:"enable" dynamodbav:"enable"`
	RefreshToken     string    `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64     `json:"-" dynamodbav:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
	User             *User     `json:"user,omitempty" dynamodbav:"-"`
}
