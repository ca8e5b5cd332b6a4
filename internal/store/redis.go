package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/loomnote/synthesis-backend/internal/domain"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
	"github.com/loomnote/synthesis-backend/internal/platform/logger"
)

const keyPrefix = "session:"

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore connects to REDIS_ADDR and returns a TTL-scoped session
// store. Sessions are evicted by Redis itself SESSION_TTL_HOURS (default 24
// hours) after creation; Get on an evicted id reports ErrNotFound.
func NewRedisStore(log *logger.Logger) (SessionStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(envutil.Str("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.Str("REDIS_PASSWORD", ""),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := time.Duration(envutil.Int("SESSION_TTL_HOURS", 24)) * time.Hour
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &redisStore{
		log: log.With("service", "RedisSessionStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *redisStore) Create(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, keyPrefix+sess.ID, raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Update applies mutate inside a WATCH transaction so concurrent writers to
// the same id serialize instead of clobbering each other. The remaining TTL
// is preserved across the write.
func (s *redisStore) Update(ctx context.Context, id string, mutate Mutator) (*domain.Session, error) {
	key := keyPrefix + id
	var updated *domain.Session

	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var before domain.Session
		if err := json.Unmarshal(raw, &before); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}

		after := before
		if err := mutate(&after); err != nil {
			return err
		}
		if err := guardTransition(&before, &after); err != nil {
			return err
		}
		after.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(&after)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, goredis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = &after
		}
		return err
	}

	const maxTxRetries = 5
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txn, key)
		if err == goredis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("redis update: contention on session %s", id)
}

func (s *redisStore) Expire(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
