package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

const barColumns = `id, name, current_count, capacity, address, latitude, longitude`

type BarRepository struct {
	pool *pgxpool.Pool
}

func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

func scanBar(row pgx.Row) (*entity.Bar, error) {
	b := &entity.Bar{}
	if err := row.Scan(&b.ID, &b.Name, &b.CurrentCount, &b.Capacity, &b.Address, &b.Latitude, &b.Longitude); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BarRepository) CreateBar(ctx context.Context, in entity.NewBar) (*entity.Bar, error) {
	if !in.Valid() {
		return nil, repository.ErrInvalidBar
	}
	return scanBar(r.pool.QueryRow(ctx, `
		INSERT INTO bars (name, current_count, capacity, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+barColumns,
		in.Name, in.CurrentCount, in.Capacity, in.Address, in.Latitude, in.Longitude))
}

// GetAllBars orders by id, which matches insertion order for BIGSERIAL keys.
func (r *BarRepository) GetAllBars(ctx context.Context) ([]entity.Bar, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+barColumns+` FROM bars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Bar{}
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BarRepository) GetBar(ctx context.Context, id int64) (*entity.Bar, error) {
	return scanBar(r.pool.QueryRow(ctx, `SELECT `+barColumns+` FROM bars WHERE id = $1`, id))
}

// UpdateBarCount is a single UPDATE; concurrent writers race and the last one wins.
func (r *BarRepository) UpdateBarCount(ctx context.Context, id int64, count int) (*entity.Bar, error) {
	return scanBar(r.pool.QueryRow(ctx, `
		UPDATE bars SET current_count = $1
		WHERE id = $2
		RETURNING `+barColumns, count, id))
}

var _ repository.BarRepository = (*BarRepository)(nil)
