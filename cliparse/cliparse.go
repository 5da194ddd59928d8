package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               int
	DatabaseURL        string
	DatabaseType       string
	JWTSecret          string
	RequestTimeout     time.Duration
	VoteRateLimit      float64
	VoteRateBurst      int
	ScoringMethodsFile string
	GroupsFile         string
}

// ParseFlags validates flags and fills the remaining settings from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("planning-poker", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", 0, "Per-request timeout")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Bearer token signing secret (prefer env)")

	// Seed data
	fs.StringVar(&cfg.ScoringMethodsFile, "scoring-methods", "", "YAML file with scoring methods to seed")
	fs.StringVar(&cfg.GroupsFile, "groups", "", "YAML file with the group directory")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	if cfg.RequestTimeout == 0 {
		if s := os.Getenv("REQUEST_TIMEOUT"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return Config{}, errors.New("invalid REQUEST_TIMEOUT env variable")
			}
			cfg.RequestTimeout = d
		} else {
			cfg.RequestTimeout = 10 * time.Second
		}
	}

	cfg.VoteRateLimit = 5
	if s := os.Getenv("VOTE_RATE_LIMIT"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return Config{}, errors.New("invalid VOTE_RATE_LIMIT env variable")
		}
		cfg.VoteRateLimit = v
	}
	cfg.VoteRateBurst = 10
	if s := os.Getenv("VOTE_RATE_BURST"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return Config{}, errors.New("invalid VOTE_RATE_BURST env variable")
		}
		cfg.VoteRateBurst = v
	}

	if cfg.ScoringMethodsFile == "" {
		cfg.ScoringMethodsFile = os.Getenv("SCORING_METHODS_FILE")
	}
	if cfg.GroupsFile == "" {
		cfg.GroupsFile = os.Getenv("GROUPS_FILE")
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	return cfg, nil
}
