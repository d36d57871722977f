package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
)

// RedisStore keeps each session as a hash under bar:session:<id>.
// Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return "bar:session:" + id
}

func (r *RedisStore) Save(ctx context.Context, s entity.Session, ttl time.Duration) error {
	if ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(ttl)
	}
	key := sessionKey(s.ID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    s.UserID,
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, repository.ErrNotFound
	}
	uid, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	s := &entity.Session{ID: id, UserID: uid}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, data["created_at"])
	s.ExpiresAt, _ = time.Parse(time.RFC3339Nano, data["expires_at"])
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

var _ repository.SessionRepository = (*RedisStore)(nil)
