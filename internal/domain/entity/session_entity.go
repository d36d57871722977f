package entity

import "time"

// Session maps an opaque session id to the authenticated user.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
