package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ServerConfig points the dashboard at an orchestration server.
type ServerConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"` // optional bearer token
}

// ReconnectConfig tunes the sync client's backoff policy.
type ReconnectConfig struct {
	BackoffMs    int `json:"backoffMs"`
	MaxAttempts  int `json:"maxAttempts"`
	KeepaliveSec int `json:"keepaliveSec"`
}

type NotificationsConfig struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// HistoryConfig controls the local event history store.
type HistoryConfig struct {
	Enabled    bool `json:"enabled"`
	RetainDays int  `json:"retainDays"`
}

// RefreshConfig controls the periodic REST task-list refresh.
type RefreshConfig struct {
	IntervalSec int `json:"intervalSec"`
}

type Config struct {
	Server        ServerConfig        `json:"server"`
	Reconnect     ReconnectConfig     `json:"reconnect"`
	Notifications NotificationsConfig `json:"notifications"`
	History       HistoryConfig       `json:"history"`
	Refresh       RefreshConfig       `json:"refresh"`
	LogLevel      string              `json:"logLevel"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Reconnect: ReconnectConfig{
			BackoffMs:    1000,
			MaxAttempts:  5,
			KeepaliveSec: 30,
		},
		History: HistoryConfig{
			Enabled:    true,
			RetainDays: 7,
		},
		Refresh: RefreshConfig{
			IntervalSec: 60,
		},
		LogLevel: "info",
	}
}

// BackoffBase returns the reconnect base delay as a duration.
func (c ReconnectConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

// KeepaliveInterval returns the keepalive period as a duration.
func (c ReconnectConfig) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveSec) * time.Second
}

// Interval returns the refresh period as a duration.
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskdeck", "config.json")
}

func DBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskdeck", "history.db")
}

func LogDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskdeck", "logs")
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
