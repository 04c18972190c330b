package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kmkrofficial/signature/internal/core"
)

// maxTouchRetries bounds optimistic retries when concurrent writers keep
// invalidating the WATCH on one session key.
const maxTouchRetries = 100

var _ Store = (*RedisStore)(nil)

// RedisStore keeps activity records as redis hashes, shared between replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr, password string, db int, prefix string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, prefix)
}

func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	key := s.key(rec.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"principal_id", rec.PrincipalID,
			"email", rec.Email,
			"issuer", rec.Issuer,
			"created_at", toUnixNano(rec.CreatedAt),
			"last_activity", toUnixNano(rec.LastActivity),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

// hashGetter is satisfied by both *redis.Client and *redis.Tx.
type hashGetter interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	return s.get(ctx, s.client, id)
}

func (s *RedisStore) get(ctx context.Context, c hashGetter, id string) (*Record, error) {
	vals, err := c.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return decodeRecord(id, vals)
}

// Touch runs the idle check inside a WATCH transaction, so a concurrent Touch or
// Delete on the same key makes one of them retry instead of racing.
func (s *RedisStore) Touch(ctx context.Context, id string, now time.Time, idle time.Duration) (*Record, error) {
	key := s.key(id)

	var result *Record
	txf := func(tx *redis.Tx) error {
		rec, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if core.IsExpired(rec.LastActivity, now, idle) {
			result = rec
			return ErrExpired
		}
		rec.LastActivity = later(rec.LastActivity, now)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "last_activity", toUnixNano(rec.LastActivity))
			// self-clean keys nobody touches anymore
			pipe.Expire(ctx, key, idle+time.Minute)
			return nil
		})
		result = rec
		return err
	}

	for i := 0; i < maxTouchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrExpired) {
				return result, ErrExpired
			}
			if errors.Is(err, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("redis touch session: %w", err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("redis touch session: too much contention on %s", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete session: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time, idle time.Duration) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.HGet(ctx, key, "last_activity").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return deleted, fmt.Errorf("redis read session: %w", err)
		}
		n, _ := strconv.ParseInt(raw, 10, 64)
		if !core.IsExpired(fromUnixNano(n), now, idle) {
			continue
		}
		removed, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis delete session: %w", err)
		}
		deleted += removed
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan sessions: %w", err)
	}
	return deleted, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRecord(id string, vals map[string]string) (*Record, error) {
	createdAt, err := strconv.ParseInt(vals["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at for session %s: %w", id, err)
	}
	lastActivity, err := strconv.ParseInt(vals["last_activity"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid last_activity for session %s: %w", id, err)
	}
	return &Record{
		ID:           id,
		PrincipalID:  vals["principal_id"],
		Email:        vals["email"],
		Issuer:       vals["issuer"],
		CreatedAt:    fromUnixNano(createdAt),
		LastActivity: fromUnixNano(lastActivity),
	}, nil
}
