package repository

import (
	"context"
	"time"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

// SessionRepository stores sessions keyed by their opaque id.
// Get returns ErrNotFound for unknown or expired sessions.
type SessionRepository interface {
	Save(ctx context.Context, s entity.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}
