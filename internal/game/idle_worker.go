package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// idleSetKey scores each live session by the unix time it may be unloaded.
	idleSetKey = "carrom_idle"
	// EventsChannel carries table lifecycle events between instances.
	EventsChannel = "carrom_events"
)

// touch pushes the session's unload deadline forward.
func (gm *GameManager) touch(id string) {
	if gm.rdb == nil {
		return
	}
	idle := 900
	if gm.config != nil && gm.config.IdleUnloadSeconds > 0 {
		idle = gm.config.IdleUnloadSeconds
	}
	deadline := gm.now().Add(time.Duration(idle) * time.Second).Unix()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := gm.rdb.ZAdd(ctx, idleSetKey, redis.Z{Score: float64(deadline), Member: id}).Err(); err != nil {
		logger.For("idle").Warn().Err(err).Str("session", id).Msg("failed to track activity")
	}
}

// Touch records client activity on a session.
func (gm *GameManager) Touch(id string) {
	gm.touch(id)
}

// StartIdleWorker starts a background worker that unloads tables nobody has
// touched for IdleUnloadSeconds.
func StartIdleWorker(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config) {
	l := logger.For("idle")
	if gm == nil || rdb == nil || cfg == nil {
		l.Warn().Msg("manager, redis or config missing; idle worker not started")
		return
	}

	poll := cfg.IdleWorkerPollSeconds
	if poll <= 0 {
		poll = 30
	}

	l.Info().Int("poll_seconds", poll).Msg("idle worker started")
	go func() {
		ticker := time.NewTicker(time.Duration(poll) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				l.Info().Msg("idle worker stopping")
				return
			case <-ticker.C:
				gm.sweepIdle(ctx, rdb, time.Now())
			}
		}
	}()
}

// sweepIdle unloads every table whose deadline has passed and returns the
// IDs it unloaded. Tables with a shot in flight are given more time.
func (gm *GameManager) sweepIdle(ctx context.Context, rdb *redis.Client, now time.Time) []string {
	l := logger.For("idle")

	members, err := rdb.ZRangeByScore(ctx, idleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		l.Error().Err(err).Msg("failed to fetch idle sessions")
		return nil
	}

	var unloaded []string
	for _, id := range members {
		// Another instance may have claimed it already.
		if removed, _ := rdb.ZRem(ctx, idleSetKey, id).Result(); removed == 0 {
			continue
		}
		if gm.InFlight(id) {
			gm.touch(id)
			continue
		}
		if !gm.Unload(id) {
			continue
		}
		unloaded = append(unloaded, id)

		payload := map[string]interface{}{"type": "table_unloaded", "sessionId": id, "reason": "idle"}
		b, _ := json.Marshal(payload)
		if n, err := rdb.Publish(ctx, EventsChannel, b).Result(); err != nil {
			l.Warn().Err(err).Str("session", id).Msg("publish unload failed")
		} else {
			l.Info().Str("session", id).Int64("subscribers", n).Msg("idle table unloaded")
		}
	}
	return unloaded
}
