// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the golf binary understands.
type Config struct {
	ListenAddr        string
	PeerURL           string
	HeartbeatInterval time.Duration
	LogLevel          logrus.Level
	InviteSecret      string
	InviteTTL         time.Duration
	RedisAddr         string
	DatabaseURL       string
	RNGSeed           int64 // 0 seeds from the clock
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ListenAddr:        ":8080",
		HeartbeatInterval: 30 * time.Second,
		LogLevel:          logrus.InfoLevel,
		InviteTTL:         10 * time.Minute,
	}
}

// Load reads the given .env files (".env" when none are named) if they exist
// and then the GOLF_* environment variables. Variables already set in the
// environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (Config, error) {
	cfg := Defaults()
	var err error

	cfg.ListenAddr = str("GOLF_LISTEN_ADDR", cfg.ListenAddr)
	cfg.PeerURL = str("GOLF_PEER_URL", cfg.PeerURL)
	cfg.InviteSecret = str("GOLF_INVITE_SECRET", cfg.InviteSecret)
	cfg.RedisAddr = str("GOLF_REDIS_ADDR", cfg.RedisAddr)
	cfg.DatabaseURL = str("GOLF_DATABASE_URL", cfg.DatabaseURL)

	if cfg.HeartbeatInterval, err = duration("GOLF_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.InviteTTL, err = duration("GOLF_INVITE_TTL", cfg.InviteTTL); err != nil {
		return Config{}, err
	}
	if v, ok := os.LookupEnv("GOLF_LOG_LEVEL"); ok && v != "" {
		if cfg.LogLevel, err = logrus.ParseLevel(v); err != nil {
			return Config{}, fmt.Errorf("GOLF_LOG_LEVEL: %w", err)
		}
	}
	if v, ok := os.LookupEnv("GOLF_RNG_SEED"); ok && v != "" {
		if cfg.RNGSeed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("GOLF_RNG_SEED: %w", err)
		}
	}
	return cfg, nil
}

func str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}
