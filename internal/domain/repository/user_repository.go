package repository

import (
	"context"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

// UserRepository defines the user operations of the entity store.
type UserRepository interface {
	// CreateUser assigns the next id. Returns ErrConflict if the username is taken.
	CreateUser(ctx context.Context, in entity.NewUser) (*entity.User, error)
	// GetUser returns ErrNotFound when no user has the id.
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	// GetUserByUsername is an exact, case-sensitive match.
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}
