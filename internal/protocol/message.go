// Package protocol defines the JSON messages two golf peers exchange.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MsgType is the top-level "type" field of every frame.
type MsgType string

const (
	MsgGameStart      MsgType = "gameStart"
	MsgGameAction     MsgType = "gameAction"
	MsgChat           MsgType = "chat"
	MsgNewGameRequest MsgType = "newGameRequest"
	MsgHeartbeat      MsgType = "heartbeat"
)

var (
	// ErrUnknownType is returned when a frame's type is not one of the MsgType constants.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMalformed is returned when a frame is not valid JSON or lacks a required payload.
	ErrMalformed = errors.New("malformed message")
)

// Message is the envelope of every frame on the peer channel.
type Message struct {
	Type      MsgType         `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"` // unix millis, heartbeats only
	Reply     bool            `json:"reply,omitempty"`     // heartbeat answer, never echoed
}

// Known reports whether t is a message type this package understands.
func (t MsgType) Known() bool {
	switch t {
	case MsgGameStart, MsgGameAction, MsgChat, MsgNewGameRequest, MsgHeartbeat:
		return true
	}
	return false
}

// Encode serialises m into a single frame.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return b, nil
}

// Decode parses one frame. Unknown types are rejected so the caller can report them.
func Decode(frame []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !m.Type.Known() {
		return m, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return m, nil
}

func newMessage(t MsgType, payload any) Message {
	m := Message{Type: t}
	if payload != nil {
		// Payload types in this package always marshal.
		m.Data, _ = json.Marshal(payload)
	}
	return m
}

func (m Message) decodeData(t MsgType, v any) error {
	if m.Type != t {
		return fmt.Errorf("%w: want %s, got %s", ErrMalformed, t, m.Type)
	}
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return fmt.Errorf("%w: %s without data", ErrMalformed, t)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, t, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// gameStart
// ---------------------------------------------------------------------------

// GameStart is the host's deal, expressed from the recipient's point of view:
// PlayerHand is the client's own hand.
type GameStart struct {
	PlayerHand         []CardPayload `json:"playerHand"`
	OpponentHand       []CardPayload `json:"opponentHand"`
	DrawPile           []CardPayload `json:"drawPile"`
	DiscardPile        *CardPayload  `json:"discardPile"`
	HostStartsFlipping bool          `json:"hostStartsFlipping"`
}

// NewGameStart wraps a deal.
func NewGameStart(gs GameStart) Message { return newMessage(MsgGameStart, gs) }

// GameStart extracts the deal payload.
func (m Message) GameStart() (GameStart, error) {
	var gs GameStart
	err := m.decodeData(MsgGameStart, &gs)
	return gs, err
}

// ---------------------------------------------------------------------------
// chat / newGameRequest / heartbeat
// ---------------------------------------------------------------------------

// Chat carries free text between the players.
type Chat struct {
	Text string `json:"text"`
}

// NewChat builds a chat frame.
func NewChat(text string) Message { return newMessage(MsgChat, Chat{Text: text}) }

// Chat extracts the chat payload.
func (m Message) Chat() (Chat, error) {
	var c Chat
	err := m.decodeData(MsgChat, &c)
	return c, err
}

// NewGameRequest asks the host for a fresh deal.
func NewGameRequest() Message { return Message{Type: MsgNewGameRequest} }

// NewHeartbeat builds a liveness probe stamped with now.
func NewHeartbeat(now time.Time) Message {
	return Message{Type: MsgHeartbeat, Timestamp: now.UnixMilli()}
}

// HeartbeatReply answers a probe, echoing its timestamp.
func HeartbeatReply(probe Message) Message {
	return Message{Type: MsgHeartbeat, Timestamp: probe.Timestamp, Reply: true}
}
