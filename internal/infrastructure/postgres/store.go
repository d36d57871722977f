package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// Store combines the user and bar repositories over one pool.
type Store struct {
	*UserRepository
	*BarRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		UserRepository: NewUserRepository(pool),
		BarRepository:  NewBarRepository(pool),
	}
}

var _ repository.Storage = (*Store)(nil)
