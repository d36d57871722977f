package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, in entity.NewUser) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, is_bouncer, bar_id)
		VALUES ($1, $2, TRUE, $3)
		RETURNING id, username, password_hash, is_bouncer, bar_id
	`, in.Username, in.Password, in.BarID)

	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.IsBouncer, &u.BarID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return r.scanOne(ctx, `
		SELECT id, username, password_hash, is_bouncer, bar_id
		FROM users
		WHERE id = $1
	`, id)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.scanOne(ctx, `
		SELECT id, username, password_hash, is_bouncer, bar_id
		FROM users
		WHERE username = $1
	`, username)
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u := &entity.User{}
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Password, &u.IsBouncer, &u.BarID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
