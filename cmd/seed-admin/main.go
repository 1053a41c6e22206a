package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/playmatatu/carrom/internal/admin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/database"
	"github.com/playmatatu/carrom/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Setup(cfg.Environment, cfg.LogLevel)
	l := logger.For("seed-admin")

	username := flag.String("user", envOr("ADMIN_USER", "admin"), "admin username")
	displayName := flag.String("name", envOr("ADMIN_NAME", "Admin"), "display name")
	roles := flag.String("roles", envOr("ADMIN_ROLES", "super_admin"), "comma separated roles")
	ips := flag.String("ips", os.Getenv("ADMIN_ALLOWED_IPS"), "comma separated allowed IPs, empty allows any")
	flag.Parse()

	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		token = "change-me-in-production"
		l.Warn().Msg("using default admin token; set ADMIN_TOKEN in production")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := admin.CreateAdminAccount(ctx, db, *username, *displayName, token, splitList(*roles), splitList(*ips)); err != nil {
		l.Fatal().Err(err).Msg("failed to create admin account")
	}

	l.Info().Str("user", *username).Str("name", *displayName).Strs("roles", splitList(*roles)).
		Msg("admin account created or updated; authenticate with X-Admin-User and X-Admin-Token")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
