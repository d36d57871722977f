package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrInvalidBar = errors.New("invalid bar")
)

// BarRepository defines the bar operations of the entity store.
type BarRepository interface {
	CreateBar(ctx context.Context, in entity.NewBar) (*entity.Bar, error)
	// GetAllBars returns bars in insertion order.
	GetAllBars(ctx context.Context) ([]entity.Bar, error)
	GetBar(ctx context.Context, id int64) (*entity.Bar, error)
	// UpdateBarCount replaces the current count. Concurrent writers are
	// not coordinated: the last write wins.
	UpdateBarCount(ctx context.Context, id int64, count int) (*entity.Bar, error)
}

// Storage is the full entity store. Implementations must be safe for
// concurrent use and every mutation must be visible to subsequent reads.
type Storage interface {
	UserRepository
	BarRepository
}
