// Package history records what happened in a game outside the two peers: a
// per-action log for spectators and tooling, and an archive of finished rounds.
// Both are optional; a peer without a recorder plays exactly the same game.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActionRecord is one protocol message applied by a peer.
type ActionRecord struct {
	SessionID   uuid.UUID       `json:"sessionId"`
	ActionIndex int             `json:"actionIndex"`
	Side        string          `json:"side"`
	Direction   string          `json:"direction"` // "out" for local actions, "in" for the opponent's
	ActionType  string          `json:"actionType"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   int64           `json:"timestamp"`
}

// RoundRecord is the scored end of one round from the recording side's view.
type RoundRecord struct {
	SessionID     uuid.UUID `json:"sessionId"`
	Round         int       `json:"round"`
	Side          string    `json:"side"`
	PlayerHand    []string  `json:"playerHand"`
	OpponentHand  []string  `json:"opponentHand"`
	MyScore       int       `json:"myScore"`
	OpponentScore int       `json:"opponentScore"`
	Outcome       string    `json:"outcome"`
	EndedAt       time.Time `json:"endedAt"`
}

// Recorder receives actions and finished rounds. Implementations must be safe
// for concurrent use.
type Recorder interface {
	RecordAction(ctx context.Context, rec ActionRecord) error
	RecordRound(ctx context.Context, rec RoundRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAction(context.Context, ActionRecord) error { return nil }
func (Nop) RecordRound(context.Context, RoundRecord) error   { return nil }
func (Nop) Close() error                                     { return nil }

// Multi fans records out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) RecordAction(ctx context.Context, rec ActionRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordAction(ctx, rec))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordRound(ctx context.Context, rec RoundRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordRound(ctx, rec))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
