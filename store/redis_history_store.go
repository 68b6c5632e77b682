package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"userhistory/api/models"
)

// RedisHistoryStore keeps the referrer in a string key and visited pages in a list,
// so a visit is recorded with SETNX + RPUSH in a single MULTI instead of read-modify-write.
type RedisHistoryStore struct {
	rdb       goredis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisHistoryStore creates a store. A positive retention is refreshed on every write;
// zero leaves keys without expiry.
func NewRedisHistoryStore(rdb goredis.UniversalClient, prefix string, retention time.Duration) *RedisHistoryStore {
	if prefix == "" {
		prefix = "edduh"
	}
	return &RedisHistoryStore{rdb: rdb, prefix: prefix, retention: retention}
}

func (s *RedisHistoryStore) referrerKey(token string) string {
	return fmt.Sprintf("%s:%s:referrer", s.prefix, token)
}

func (s *RedisHistoryStore) pagesKey(token string) string {
	return fmt.Sprintf("%s:%s:pages", s.prefix, token)
}

func (s *RedisHistoryStore) Get(ctx context.Context, token string) (*models.History, error) {
	pipe := s.rdb.Pipeline()
	refCmd := pipe.Get(ctx, s.referrerKey(token))
	pagesCmd := pipe.LRange(ctx, s.pagesKey(token), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pages := make([]models.Entry, 0, len(pagesCmd.Val()))
	for _, raw := range pagesCmd.Val() {
		e, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		pages = append(pages, e)
	}

	refRaw, err := refCmd.Result()
	switch {
	case errors.Is(err, goredis.Nil):
		if len(pages) == 0 {
			return nil, nil
		}
		// Single-list layout: the first element is the referrer.
		return models.HistoryFromEntries(pages), nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	referrer, err := decodeEntry(refRaw)
	if err != nil {
		return nil, err
	}
	h := &models.History{Referrer: referrer}
	if len(pages) > 0 {
		h.Pages = pages
	}
	return h, nil
}

func (s *RedisHistoryStore) Set(ctx context.Context, token string, h *models.History) error {
	if h == nil {
		return s.Delete(ctx, token)
	}
	referrer, err := encodeEntry(h.Referrer)
	if err != nil {
		return err
	}
	pages := make([]interface{}, 0, len(h.Pages))
	for _, p := range h.Pages {
		enc, err := encodeEntry(p)
		if err != nil {
			return err
		}
		pages = append(pages, enc)
	}

	refKey, pagesKey := s.referrerKey(token), s.pagesKey(token)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, refKey, pagesKey)
		pipe.Set(ctx, refKey, referrer, s.retention)
		if len(pages) > 0 {
			pipe.RPush(ctx, pagesKey, pages...)
			s.expire(ctx, pipe, pagesKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisHistoryStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.referrerKey(token), s.pagesKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisHistoryStore) Append(ctx context.Context, token string, seed, visit models.Entry) error {
	seedRaw, err := encodeEntry(seed)
	if err != nil {
		return err
	}
	visitRaw, err := encodeEntry(visit)
	if err != nil {
		return err
	}

	refKey, pagesKey := s.referrerKey(token), s.pagesKey(token)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SetNX(ctx, refKey, seedRaw, 0)
		pipe.RPush(ctx, pagesKey, visitRaw)
		s.expire(ctx, pipe, refKey)
		s.expire(ctx, pipe, pagesKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Sweep is a no-op: Redis expires idle histories through the retention TTL.
func (s *RedisHistoryStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisHistoryStore) expire(ctx context.Context, pipe goredis.Pipeliner, key string) {
	if s.retention > 0 {
		pipe.Expire(ctx, key, s.retention)
	}
}
