// Package store tracks per-document processing status in Redis so
// operators can watch long batches from outside the process.
package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Document processing states.
const (
	StateQueued     = "queued"
	StateProcessing = "processing"
	StateDone       = "done"
	StateFailed     = "failed"
	StateSkipped    = "skipped"
)

// Status is the externally visible state of one document in a batch.
type Status struct {
	State        string
	Message      string
	AuthorsFound int
	Start        *time.Time
	End          *time.Time
}

// RedisStatus writes document status hashes keyed by batch and
// document key, with a TTL so finished batches age out.
type RedisStatus struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatus connects and pings; status tracking is optional, so
// callers treat an error here as "run without it".
func NewRedisStatus(redisURL string, ttl time.Duration) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStatus{client: c, ttl: ttl}, nil
}

func (s *RedisStatus) key(batchID, docKey string) string {
	return fmt.Sprintf("authorscan:%s:%s", batchID, docKey)
}

// Set records the document's current status.
func (s *RedisStatus) Set(ctx context.Context, batchID, docKey string, st Status) error {
	m := map[string]any{
		"state":         st.State,
		"message":       st.Message,
		"authors_found": st.AuthorsFound,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	key := s.key(batchID, docKey)
	if err := s.client.HSet(ctx, key, m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

// Get returns the document's status; ok is false when nothing was
// recorded.
func (s *RedisStatus) Get(ctx context.Context, batchID, docKey string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(batchID, docKey)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{State: res["state"], Message: res["message"]}
	if v := res["authors_found"]; v != "" {
		st.AuthorsFound, _ = strconv.Atoi(v)
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	return st, true, nil
}

func (s *RedisStatus) Close() error { return s.client.Close() }
