package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults target a ScoreBoard backend running on its conventional local port.
const (
	DefaultListenAddr = ":3000"
	DefaultBackendURL = "http://localhost:8080"
	DefaultDBPath     = "./data/scoredeck.db"
	DefaultPageSize   = 20
)

// Settings holds the runtime configuration for the scoredeck gateway.
type Settings struct {
	ListenAddr string
	BackendURL string
	DBPath     string
	LogFile    string
	LogLevel   string
	PageSize   int
}

// Load reads settings from the environment, honouring a .env file in the
// working directory when present.
func Load() (*Settings, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	s := &Settings{
		ListenAddr: envOr("SCOREDECK_LISTEN", DefaultListenAddr),
		BackendURL: envOr("SCOREDECK_BACKEND_URL", DefaultBackendURL),
		DBPath:     envOr("SCOREDECK_DB_PATH", DefaultDBPath),
		LogFile:    os.Getenv("SCOREDECK_LOG_FILE"),
		LogLevel:   envOr("SCOREDECK_LOG_LEVEL", "info"),
		PageSize:   DefaultPageSize,
	}

	if raw := os.Getenv("SCOREDECK_PAGE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCOREDECK_PAGE_SIZE %q", raw)
		}
		s.PageSize = n
	}

	if _, err := url.ParseRequestURI(s.BackendURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", s.BackendURL, err)
	}

	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
