package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// SessionRow is one persisted carrom game
type SessionRow struct {
	ID            string          `db:"id" json:"id"`
	State         json.RawMessage `db:"state" json:"state"`
	CurrentPlayer string          `db:"current_player" json:"current_player"`
	TurnNumber    int             `db:"turn_number" json:"turn_number"`
	Player1Score  int             `db:"player1_score" json:"player1_score"`
	Player2Score  int             `db:"player2_score" json:"player2_score"`
	GameWon       bool            `db:"game_won" json:"game_won"`
	Winner        sql.NullString  `db:"winner" json:"winner,omitempty"`
	ShotCount     int             `db:"shot_count" json:"shot_count"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ShotRow records a single resolved shot
type ShotRow struct {
	ID              int64          `db:"id" json:"id"`
	SessionID       string         `db:"session_id" json:"session_id"`
	ShotNumber      int            `db:"shot_number" json:"shot_number"`
	Player          string         `db:"player" json:"player"`
	CoinsPocketed   pq.StringArray `db:"coins_pocketed" json:"coins_pocketed"`
	StrikerPocketed bool           `db:"striker_pocketed" json:"striker_pocketed"`
	Score           int            `db:"score" json:"score"`
	Foul            bool           `db:"foul" json:"foul"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// AdminAccount is an operator allowed to use the admin endpoints
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit is one entry of the admin audit log
type AdminAudit struct {
	ID        int64           `db:"id" json:"id"`
	AdminUser string          `db:"admin_user" json:"admin_user"`
	IP        string          `db:"ip" json:"ip"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
