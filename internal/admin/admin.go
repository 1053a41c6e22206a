package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/playmatatu/carrom/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminNotFound = errors.New("admin account not found")
	ErrInvalidToken  = errors.New("invalid admin token")
	ErrIPNotAllowed  = errors.New("ip not allowed for admin")
)

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(ctx context.Context, db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var acc models.AdminAccount
	err := db.GetContext(ctx, &acc, `SELECT username, display_name, token_hash, roles, allowed_ips, created_at, updated_at
		FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// HashToken bcrypt-hashes a plain admin token.
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateAdminAccount creates or replaces an admin account (used for seeding)
func CreateAdminAccount(ctx context.Context, db *sqlx.DB, username, displayName, plainToken string, roles, allowedIPs []string) error {
	hashed, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, allowed_ips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			allowed_ips = EXCLUDED.allowed_ips,
			updated_at = NOW()
	`, username, displayName, hashed, pq.Array(roles), pq.Array(allowedIPs))
	return err
}

// IPAllowed reports whether ip may use the account. An empty allowlist allows any address.
func IPAllowed(acc *models.AdminAccount, ip string) bool {
	if len(acc.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range acc.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}

// ValidateAdmin checks a username + token pair coming from ip.
func ValidateAdmin(ctx context.Context, db *sqlx.DB, username, token, ip string) (*models.AdminAccount, error) {
	l := logger.For("admin")

	acc, err := GetAdminAccount(ctx, db, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Warn().Str("admin", username).Msg("no admin account")
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !VerifyAdminToken(acc.TokenHash, token) {
		l.Warn().Str("admin", username).Msg("token verification failed")
		return nil, ErrInvalidToken
	}
	if !IPAllowed(acc, ip) {
		l.Warn().Str("admin", username).Str("ip", ip).Msg("admin ip not allowed")
		return nil, ErrIPNotAllowed
	}
	return acc, nil
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(ctx context.Context, db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_audit (admin_user, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)
	if err != nil {
		logger.For("admin").Error().Err(err).Str("action", action).Msg("failed to log admin action")
	}
	return err
}

// GetAdminAuditLogs retrieves recent admin audit logs with pagination
func GetAdminAuditLogs(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	logs := []models.AdminAudit{}
	err := db.SelectContext(ctx, &logs, `
		SELECT id, admin_user, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
