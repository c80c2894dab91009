package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	RedisURL       string
	DatabaseURL    string
	ProfileBaseURL string

	MaxActiveRooms int
	InviteTimeout  time.Duration
	ReconnectGrace time.Duration

	NoticeDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8090",
		MaxActiveRooms: 3,
		InviteTimeout:  20 * time.Second,
		ReconnectGrace: 4 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.ProfileBaseURL = strings.TrimSpace(os.Getenv("PROFILE_BASE_URL"))

	if v := strings.TrimSpace(os.Getenv("MAX_ACTIVE_ROOMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxActiveRooms = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("INVITE_TIMEOUT")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InviteTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_GRACE")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReconnectGrace = time.Duration(n) * time.Second
		}
	}

	cfg.NoticeDir = strings.TrimSpace(os.Getenv("NOTICE_DIR"))

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.ProfileBaseURL == "" {
		return nil, errors.New("PROFILE_BASE_URL is required")
	}

	return cfg, nil
}
