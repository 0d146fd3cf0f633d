package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS golf_actions (
	session_id   UUID        NOT NULL,
	action_index INT         NOT NULL,
	side         TEXT        NOT NULL,
	direction    TEXT        NOT NULL,
	action_type  TEXT        NOT NULL,
	payload      JSONB,
	ts           BIGINT      NOT NULL,
	PRIMARY KEY (session_id, side, action_index)
);
CREATE TABLE IF NOT EXISTS golf_rounds (
	session_id     UUID        NOT NULL,
	round          INT         NOT NULL,
	side           TEXT        NOT NULL,
	player_hand    JSONB       NOT NULL,
	opponent_hand  JSONB       NOT NULL,
	my_score       INT         NOT NULL,
	opponent_score INT         NOT NULL,
	outcome        TEXT        NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, side, round)
);`

const insertAction = `
INSERT INTO golf_actions (session_id, action_index, side, direction, action_type, payload, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`

const insertRound = `
INSERT INTO golf_rounds (session_id, round, side, player_hand, opponent_hand, my_score, opponent_score, outcome, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id, side, round) DO UPDATE
SET player_hand = EXCLUDED.player_hand,
    opponent_hand = EXCLUDED.opponent_hand,
    my_score = EXCLUDED.my_score,
    opponent_score = EXCLUDED.opponent_score,
    outcome = EXCLUDED.outcome,
    ended_at = EXCLUDED.ended_at`

// execer is the part of *pgxpool.Pool the archive uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresArchive stores actions and finished rounds in Postgres.
type PostgresArchive struct {
	db    execer
	close func()
}

// NewPostgresArchive opens a pool on url and creates the tables if needed.
func NewPostgresArchive(ctx context.Context, url string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a := &PostgresArchive{db: pool, close: pool.Close}
	if err := a.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *PostgresArchive) migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

func (a *PostgresArchive) RecordAction(ctx context.Context, rec ActionRecord) error {
	var payload any
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}
	_, err := a.db.Exec(ctx, insertAction,
		rec.SessionID, rec.ActionIndex, rec.Side, rec.Direction, rec.ActionType, payload, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert action %d: %w", rec.ActionIndex, err)
	}
	return nil
}

func (a *PostgresArchive) RecordRound(ctx context.Context, rec RoundRecord) error {
	player, err := json.Marshal(rec.PlayerHand)
	if err != nil {
		return fmt.Errorf("marshal player hand: %w", err)
	}
	opponent, err := json.Marshal(rec.OpponentHand)
	if err != nil {
		return fmt.Errorf("marshal opponent hand: %w", err)
	}
	_, err = a.db.Exec(ctx, insertRound,
		rec.SessionID, rec.Round, rec.Side, string(player), string(opponent),
		rec.MyScore, rec.OpponentScore, rec.Outcome, rec.EndedAt)
	if err != nil {
		return fmt.Errorf("insert round %d: %w", rec.Round, err)
	}
	return nil
}

func (a *PostgresArchive) Close() error {
	if a.close != nil {
		a.close()
	}
	return nil
}
