package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	allDepartments = "_all"
	// versionTTL outlives any snapshot TTL so a version never resets while a
	// snapshot stored under it is still readable.
	versionTTL = 24 * time.Hour
)

// SnapshotCache stores display snapshots keyed by department. Every
// department has a version that Invalidate advances; Get reports the version it
// read and Set stores under the version given, so a snapshot loaded before an
// invalidation is never served after it. ok is false on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, departmentID string) (snapshot models.QueueDisplaySnapshot, version int64, ok bool, err error)
	Set(ctx context.Context, departmentID string, version int64, snapshot models.QueueDisplaySnapshot) error
	Invalidate(ctx context.Context, departmentID string) error
}

type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "antrian:display:"}
}

// NewRedisClient connects and pings, the way the service does at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisCache) key(departmentID string) string {
	if departmentID == "" {
		departmentID = allDepartments
	}
	return c.prefix + departmentID
}

func (c *RedisCache) versionKey(departmentID string) string {
	return c.key(departmentID) + ":version"
}

func (c *RedisCache) snapshotKey(departmentID string, version int64) string {
	return c.key(departmentID) + ":v" + strconv.FormatInt(version, 10)
}

func (c *RedisCache) Get(ctx context.Context, departmentID string) (models.QueueDisplaySnapshot, int64, bool, error) {
	version, err := c.client.Get(ctx, c.versionKey(departmentID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.QueueDisplaySnapshot{}, 0, false, fmt.Errorf("get display version: %w", err)
	}
	raw, err := c.client.Get(ctx, c.snapshotKey(departmentID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.QueueDisplaySnapshot{}, version, false, nil
	}
	if err != nil {
		return models.QueueDisplaySnapshot{}, version, false, fmt.Errorf("get display snapshot: %w", err)
	}
	var snapshot models.QueueDisplaySnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.QueueDisplaySnapshot{}, version, false, fmt.Errorf("decode display snapshot: %w", err)
	}
	return snapshot, version, true, nil
}

func (c *RedisCache) Set(ctx context.Context, departmentID string, version int64, snapshot models.QueueDisplaySnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.snapshotKey(departmentID, version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set display snapshot: %w", err)
	}
	return nil
}

// Invalidate advances the version of the department and of the
// all-departments view, since both contain the department's entries. Older
// snapshots stay in Redis until their TTL but are no longer read.
func (c *RedisCache) Invalidate(ctx context.Context, departmentID string) error {
	departments := []string{allDepartments}
	if departmentID != "" && departmentID != allDepartments {
		departments = append(departments, departmentID)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, department := range departments {
			pipe.Incr(ctx, c.versionKey(department))
			pipe.Expire(ctx, c.versionKey(department), versionTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate display snapshot: %w", err)
	}
	return nil
}

type Loader func(ctx context.Context, departmentID string) (models.QueueDisplaySnapshot, error)

// ReadThrough serves from cache when possible and fills it on a miss under the
// version read before loading. Cache failures are logged and never fail the
// read. A nil cache always loads.
func ReadThrough(ctx context.Context, cache SnapshotCache, departmentID string, load Loader) (models.QueueDisplaySnapshot, error) {
	if cache == nil {
		return load(ctx, departmentID)
	}
	logger := logging.FromContext(ctx)
	snapshot, version, ok, readErr := cache.Get(ctx, departmentID)
	if readErr != nil {
		logger.Warn().Err(readErr).Str("department_id", departmentID).Msg("display cache read failed")
	}
	if ok {
		return snapshot, nil
	}
	snapshot, err := load(ctx, departmentID)
	if err != nil {
		return models.QueueDisplaySnapshot{}, err
	}
	if readErr != nil {
		// the version is unknown, so the fresh snapshot is not stored
		return snapshot, nil
	}
	if err := cache.Set(ctx, departmentID, version, snapshot); err != nil {
		logger.Warn().Err(err).Str("department_id", departmentID).Msg("display cache write failed")
	}
	return snapshot, nil
}

// Invalidator returns a queue listener that drops cached snapshots for the
// department of every event.
func Invalidator(cache SnapshotCache) func(ctx context.Context, eventType string, entry models.QueueEntry) {
	return func(ctx context.Context, eventType string, entry models.QueueEntry) {
		if err := cache.Invalidate(ctx, entry.DepartmentID); err != nil {
			logging.FromContext(ctx).Warn().Err(err).
				Str("event", eventType).
				Str("department_id", entry.DepartmentID).
				Msg("display cache invalidation failed")
		}
	}
}
