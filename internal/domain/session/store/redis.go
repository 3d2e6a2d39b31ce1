package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"agentdeck-server/internal/domain/session/model"
)

type redisStore struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedis constructs a redis-backed login record store. Each record is a
// single key, so a login overwrite is one SET.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "session:login:"
	}
	return &redisStore{
		client: client,
		cfg:    cfg,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(userID uint) string {
	return s.prefix + strconv.FormatUint(uint64(userID), 10)
}

func (s *redisStore) Put(ctx context.Context, rec model.LoginRecord) error {
	if rec.UserID == 0 {
		return fmt.Errorf("user id required")
	}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return err
	}
	// zero expiration keeps the key until the next login or logout
	return s.client.Set(ctx, s.key(rec.UserID), data, s.cfg.TTL).Err()
}

func (s *redisStore) Get(ctx context.Context, userID uint) (model.LoginRecord, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LoginRecord{}, ErrNotFound
	}
	if err != nil {
		return model.LoginRecord{}, err
	}
	var rec model.LoginRecord
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return model.LoginRecord{}, fmt.Errorf("decode login record: %w", err)
	}
	return rec, nil
}

func (s *redisStore) Delete(ctx context.Context, userID uint) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

// DeleteIfCurrent compares and deletes inside WATCH/MULTI so a login that
// lands in between is never removed.
func (s *redisStore) DeleteIfCurrent(ctx context.Context, userID uint, sessionToken string) (bool, error) {
	key := s.key(userID)
	deleted := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var rec model.LoginRecord
		if err := sonic.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode login record: %w", err)
		}
		if rec.SessionToken != sessionToken {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		}); err != nil {
			return err
		}
		deleted = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// the key changed under us: a newer login now owns it
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}
	return map[string]any{
		"type":        "redis",
		"total":       total,
		"ttl_seconds": int(s.cfg.TTL.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
