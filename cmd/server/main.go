package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/playmatatu/carrom/internal/api"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/database"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/playmatatu/carrom/internal/migrations"
	"github.com/playmatatu/carrom/internal/redis"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.Environment, cfg.LogLevel)
	l := logger.For("server")
	if envErr != nil {
		l.Debug().Msg("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Warn().Err(err).Msg("postgres unavailable; durable history and admin API disabled")
	} else {
		defer db.Close()
		if cfg.MigrateOnStart {
			l.Info().Msg("running database migrations")
			if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
				l.Fatal().Err(err).Msg("failed to run migrations")
			}
		}
	}

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		l.Warn().Err(err).Msg("redis unavailable; session cache, idle unloading and relay disabled")
	} else {
		defer rdb.Close()
	}

	sessions, history := buildStore(db, rdb, cfg)

	gm := game.NewGameManager(sessions, rdb, cfg)
	hub := ws.NewHub(gm, rdb)
	gm.SetListener(hub)

	go hub.Run(ctx)
	hub.StartEventSubscriber(ctx)
	game.StartIdleWorker(ctx, gm, rdb, cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api.SetupRoutes(router, api.Deps{
		DB:      db,
		Redis:   rdb,
		Config:  cfg,
		Manager: gm,
		Hub:     hub,
		History: history,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("starting carrom server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("http shutdown")
	}
	gm.Shutdown()
	l.Info().Msg("stopped")
}

// buildStore picks the session store from what is reachable. Redis fronts
// Postgres when both are up.
func buildStore(db *sqlx.DB, rdb *goredis.Client, cfg *config.Config) (game.Store, store.ShotHistory) {
	l := logger.For("server")
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute

	switch {
	case db != nil && rdb != nil:
		tiered := store.NewTiered(store.NewRedis(rdb, ttl), store.NewPostgres(db))
		l.Info().Msg("session store: redis over postgres")
		return tiered, tiered
	case db != nil:
		pg := store.NewPostgres(db)
		l.Info().Msg("session store: postgres")
		return pg, pg
	case rdb != nil:
		r := store.NewRedisWithHistory(rdb, ttl)
		l.Info().Msg("session store: redis")
		return r, r
	default:
		mem := store.NewMemory()
		l.Warn().Msg("session store: in-memory, sessions are lost on restart")
		return mem, mem
	}
}

func requestLogger() gin.HandlerFunc {
	l := logger.For("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
