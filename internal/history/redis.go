package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ActionsChannel receives every action record as it is logged.
	ActionsChannel = "golf:actions"
	// RoundsChannel receives every finished round.
	RoundsChannel = "golf:rounds"
)

// ActionsKey is the list holding a session's actions in order.
func ActionsKey(session uuid.UUID) string { return "golf:actions:" + session.String() }

// RoundsKey is the list holding a session's finished rounds.
func RoundsKey(session uuid.UUID) string { return "golf:rounds:" + session.String() }

// redisClient is the part of *redis.Client the log uses.
type redisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisLog appends records to per-session lists and publishes them for live
// listeners.
type RedisLog struct {
	rdb redisClient
}

// NewRedisLog connects to addr and checks the server answers.
func NewRedisLog(ctx context.Context, addr string) (*RedisLog, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisLog{rdb: rdb}, nil
}

func (l *RedisLog) RecordAction(ctx context.Context, rec ActionRecord) error {
	return l.push(ctx, ActionsKey(rec.SessionID), ActionsChannel, rec)
}

func (l *RedisLog) RecordRound(ctx context.Context, rec RoundRecord) error {
	return l.push(ctx, RoundsKey(rec.SessionID), RoundsChannel, rec)
}

func (l *RedisLog) push(ctx context.Context, key, channel string, rec any) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := l.rdb.RPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	if err := l.rdb.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (l *RedisLog) Close() error { return l.rdb.Close() }
