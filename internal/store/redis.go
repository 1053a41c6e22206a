package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis caches sessions as JSON with an expiry. With history enabled it also
// keeps a per-session shot log under the same expiry.
type Redis struct {
	rdb     *redis.Client
	ttl     time.Duration
	now     func() time.Time
	history bool
}

// NewRedis creates a Redis store. A zero ttl means one hour.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl, now: time.Now}
}

// NewRedisWithHistory is NewRedis for deployments where Redis is the only
// store, so it also has to answer shot history queries.
func NewRedisWithHistory(rdb *redis.Client, ttl time.Duration) *Redis {
	r := NewRedis(rdb, ttl)
	r.history = true
	return r
}

func sessionKey(id string) string {
	return "carrom:session:" + id + ":state"
}

// shotsKey is a hash of shot number to JSON shot row.
func shotsKey(id string) string {
	return "carrom:session:" + id + ":shots"
}

func (r *Redis) GetCurrentGame(ctx context.Context, id string) (*game.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}

	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", game.ErrCorruptSession, id, err)
	}
	return &s, nil
}

func (r *Redis) SaveGameState(ctx context.Context, s *game.Session) (*game.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.ID, err)
	}

	row, hasShot := shotRow(s)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetEx(ctx, sessionKey(s.ID), data, r.ttl)
		if r.history && hasShot {
			row.ID = int64(row.ShotNumber)
			shot, err := json.Marshal(row)
			if err != nil {
				return err
			}
			// HSETNX keeps the first write of a shot, as the durable store does.
			pipe.HSetNX(ctx, shotsKey(s.ID), strconv.Itoa(row.ShotNumber), shot)
			pipe.Expire(ctx, shotsKey(s.ID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis set %s: %w", s.ID, err)
	}
	return s.Clone(), nil
}

func (r *Redis) ResetGame(ctx context.Context, id string) (*game.Session, error) {
	if r.history {
		if err := r.rdb.Del(ctx, shotsKey(id)).Err(); err != nil {
			return nil, fmt.Errorf("redis reset shots %s: %w", id, err)
		}
	}
	return r.SaveGameState(ctx, freshSession(id, r.now()))
}

// RecentShots returns the session's shots, newest first. Shots are only
// indexed per session, so an empty sessionID yields nothing.
func (r *Redis) RecentShots(ctx context.Context, sessionID string, limit int) ([]models.ShotRow, error) {
	return r.shots(ctx, sessionID, "", limit)
}

func (r *Redis) ShotsByPlayer(ctx context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error) {
	return r.shots(ctx, sessionID, player, limit)
}

func (r *Redis) shots(ctx context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error) {
	out := []models.ShotRow{}
	if sessionID == "" {
		return out, nil
	}

	raw, err := r.rdb.HGetAll(ctx, shotsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis shots %s: %w", sessionID, err)
	}
	for field, v := range raw {
		var row models.ShotRow
		if err := json.Unmarshal([]byte(v), &row); err != nil {
			return nil, fmt.Errorf("decode shot %s/%s: %w", sessionID, field, err)
		}
		if player != "" && row.Player != string(player) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShotNumber > out[j].ShotNumber })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Forget drops a cached session.
func (r *Redis) Forget(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}
