package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/models"
)

// Postgres is the durable store. Each save upserts the session row and
// appends the latest shot to carrom_shots.
type Postgres struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (p *Postgres) GetCurrentGame(ctx context.Context, id string) (*game.Session, error) {
	var row models.SessionRow
	err := p.db.GetContext(ctx, &row, `SELECT id, state, current_player, turn_number, player1_score, player2_score,
		game_won, winner, shot_count, created_at, updated_at FROM carrom_sessions WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}

	var s game.Session
	if err := json.Unmarshal(row.State, &s); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", game.ErrCorruptSession, id, err)
	}
	return &s, nil
}

func (p *Postgres) SaveGameState(ctx context.Context, s *game.Session) (*game.Session, error) {
	row, err := sessionRow(s)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSession(ctx, tx, row); err != nil {
		return nil, err
	}

	if shot, ok := shotRow(s); ok {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO carrom_shots (session_id, shot_number, player, coins_pocketed, striker_pocketed, score, foul, created_at)
			VALUES (:session_id, :shot_number, :player, :coins_pocketed, :striker_pocketed, :score, :foul, :created_at)
			ON CONFLICT (session_id, shot_number) DO NOTHING
		`, shot)
		if err != nil {
			return nil, fmt.Errorf("insert shot %s/%d: %w", s.ID, shot.ShotNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", s.ID, err)
	}
	return s.Clone(), nil
}

func (p *Postgres) ResetGame(ctx context.Context, id string) (*game.Session, error) {
	s := freshSession(id, p.now())
	row, err := sessionRow(s)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM carrom_shots WHERE session_id=$1`, id); err != nil {
		return nil, fmt.Errorf("clear shots %s: %w", id, err)
	}
	if err := upsertSession(ctx, tx, row); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", id, err)
	}
	return s, nil
}

func sessionRow(s *game.Session) (models.SessionRow, error) {
	state, err := json.Marshal(s)
	if err != nil {
		return models.SessionRow{}, fmt.Errorf("encode %s: %w", s.ID, err)
	}
	row := models.SessionRow{
		ID:            s.ID,
		State:         state,
		CurrentPlayer: string(s.CurrentPlayer),
		TurnNumber:    s.TurnNumber,
		Player1Score:  s.Scores[game.Player1],
		Player2Score:  s.Scores[game.Player2],
		GameWon:       s.Won,
		ShotCount:     s.ShotCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Winner != "" {
		row.Winner = sql.NullString{String: string(s.Winner), Valid: true}
	}
	return row, nil
}

func upsertSession(ctx context.Context, tx *sqlx.Tx, row models.SessionRow) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO carrom_sessions (id, state, current_player, turn_number, player1_score, player2_score,
			game_won, winner, shot_count, created_at, updated_at)
		VALUES (:id, :state, :current_player, :turn_number, :player1_score, :player2_score,
			:game_won, :winner, :shot_count, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			current_player = EXCLUDED.current_player,
			turn_number = EXCLUDED.turn_number,
			player1_score = EXCLUDED.player1_score,
			player2_score = EXCLUDED.player2_score,
			game_won = EXCLUDED.game_won,
			winner = EXCLUDED.winner,
			shot_count = EXCLUDED.shot_count,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, row)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", row.ID, err)
	}
	return nil
}

const shotColumns = `id, session_id, shot_number, player, coins_pocketed, striker_pocketed, score, foul, created_at`

func (p *Postgres) RecentShots(ctx context.Context, sessionID string, limit int) ([]models.ShotRow, error) {
	shots := []models.ShotRow{}
	err := p.db.SelectContext(ctx, &shots, `
		SELECT `+shotColumns+` FROM carrom_shots
		WHERE ($1 = '' OR session_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sessionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select recent shots: %w", err)
	}
	return shots, nil
}

func (p *Postgres) ShotsByPlayer(ctx context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error) {
	shots := []models.ShotRow{}
	err := p.db.SelectContext(ctx, &shots, `
		SELECT `+shotColumns+` FROM carrom_shots
		WHERE ($1 = '' OR session_id = $1) AND player = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, sessionID, string(player), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select shots for %s: %w", player, err)
	}
	return shots, nil
}

// SessionIDs lists stored sessions, most recently updated first.
func (p *Postgres) SessionIDs(ctx context.Context, limit int) ([]string, error) {
	ids := []string{}
	err := p.db.SelectContext(ctx, &ids, `SELECT id FROM carrom_sessions ORDER BY updated_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("select session ids: %w", err)
	}
	return ids, nil
}
