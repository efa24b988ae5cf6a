package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"

	"go-spine-inspector/pkg/models"
)

// NewRedisPool dials addr lazily and caps the number of open connections
func NewRedisPool(addr string, maxConnections int) *redis.Pool {
	pool := redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, maxConnections)
	pool.MaxActive = maxConnections
	pool.IdleTimeout = 5 * time.Minute
	pool.TestOnBorrow = func(c redis.Conn, t time.Time) error {
		if time.Since(t) < time.Minute {
			return nil
		}
		_, err := c.Do("PING")
		return err
	}
	return pool
}

// RedisDiagnosisRepository stores each diagnosis as a JSON string and indexes
// it in a per-user sorted set scored by creation time.
type RedisDiagnosisRepository struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisDiagnosisRepository creates a repository and checks that the server answers
func NewRedisDiagnosisRepository(pool *redis.Pool, keyPrefix string) (*RedisDiagnosisRepository, error) {
	if keyPrefix == "" {
		keyPrefix = "spine"
	}
	r := &RedisDiagnosisRepository{pool: pool, prefix: keyPrefix}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	return r, nil
}

func (r *RedisDiagnosisRepository) diagnosisKey(id string) string {
	return r.prefix + ":diagnosis:" + id
}

func (r *RedisDiagnosisRepository) userKey(userID string) string {
	return r.prefix + ":user:" + userID + ":diagnoses"
}

func (r *RedisDiagnosisRepository) Save(ctx context.Context, d models.Diagnosis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDiagnosis(d); err != nil {
		return err
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode diagnosis: %w", err)
	}

	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", r.diagnosisKey(d.ID), data); err != nil {
		return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	if _, err := conn.Do("ZADD", r.userKey(d.UserID), d.CreatedAt.UnixMicro(), d.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	return nil
}

func (r *RedisDiagnosisRepository) Get(ctx context.Context, id string) (*models.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := r.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", r.diagnosisKey(id)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrDiagnosisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	var d models.Diagnosis
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("corrupt diagnosis %s: %w", id, err)
	}
	return &d, nil
}

func (r *RedisDiagnosisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := -1
	if limit > 0 {
		stop = limit - 1
	}

	conn := r.pool.Get()
	defer conn.Close()

	ids, err := redis.Strings(conn.Do("ZREVRANGE", r.userKey(userID), 0, stop))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}
	if len(ids) == 0 {
		return []models.Diagnosis{}, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = r.diagnosisKey(id)
	}
	values, err := redis.Values(conn.Do("MGET", args...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
	}

	out := make([]models.Diagnosis, 0, len(values))
	for i, v := range values {
		data, err := redis.Bytes(v, nil)
		if errors.Is(err, redis.ErrNil) {
			// index entry outlived its record
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRepositoryUnavailable, err)
		}
		var d models.Diagnosis
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("corrupt diagnosis %s: %w", ids[i], err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *RedisDiagnosisRepository) Close() error {
	return r.pool.Close()
}
