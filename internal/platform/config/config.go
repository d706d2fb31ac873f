package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LedgerBackendMemory   = "memory"
	LedgerBackendBolt     = "bolt"
	LedgerBackendPostgres = "postgres"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	LedgerBackend string
	BoltPath      string

	// SigningKeyID names the active ballot signing key. Exactly one of
	// SigningSecret (HMAC) or SigningSeed (Ed25519) is set.
	SigningKeyID  string
	SigningSecret []byte
	SigningSeed   []byte
	AnonymizerKey []byte

	TierConfigPath string

	TokenTTL       time.Duration
	WorkerInterval time.Duration
	RelayBatch     int
	SweepBatch     int

	ScoreCacheSize     int
	ScoreCacheTTL      time.Duration
	SourceTimeout      time.Duration
	ScoreLatencyBudget time.Duration
	ChoiceTimeout      time.Duration

	EnableRelayWorker   bool
	EnableSweeperWorker bool
}

// Load reads the process environment. A .env file in the working directory,
// or the file named by ENV_FILE, is applied first without overriding variables
// that are already set.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "civic-ballot"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LEDGER_BACKEND")))
	switch backend {
	case "":
		backend = LedgerBackendMemory
	case LedgerBackendMemory, LedgerBackendBolt, LedgerBackendPostgres:
	default:
		return Config{}, fmt.Errorf("LEDGER_BACKEND %q is not one of memory, bolt, postgres", backend)
	}

	cfg := Config{
		ServiceName:    service,
		HTTPPort:       port,
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		LedgerBackend:  backend,
		BoltPath:       envString("BOLT_PATH", "data/ledger.db"),
		SigningKeyID:   envString("SIGNING_KEY_ID", "ballot-1"),
		TierConfigPath: os.Getenv("TIER_CONFIG_PATH"),

		TokenTTL:       envDuration("TOKEN_TTL", 2*time.Minute),
		WorkerInterval: envDuration("WORKER_INTERVAL", 2*time.Second),
		RelayBatch:     envInt("RELAY_BATCH", 100),
		SweepBatch:     envInt("SWEEP_BATCH", 500),

		ScoreCacheSize:     envInt("SCORE_CACHE_SIZE", 10_000),
		ScoreCacheTTL:      envDuration("SCORE_CACHE_TTL", time.Minute),
		SourceTimeout:      envDuration("CREDENTIAL_SOURCE_TIMEOUT", 150*time.Millisecond),
		ScoreLatencyBudget: envDuration("SCORE_LATENCY_BUDGET", 250*time.Millisecond),
		ChoiceTimeout:      envDuration("CHOICE_RESOLVE_TIMEOUT", 2*time.Second),

		EnableRelayWorker:   envBool("ENABLE_LEDGER_RELAY", true),
		EnableSweeperWorker: envBool("ENABLE_RESERVATION_SWEEPER", true),
	}

	var err error
	if cfg.SigningSecret, err = envHex("SIGNING_SECRET"); err != nil {
		return Config{}, err
	}
	if cfg.SigningSeed, err = envHex("SIGNING_ED25519_SEED"); err != nil {
		return Config{}, err
	}
	if cfg.AnonymizerKey, err = envHex("ANONYMIZER_KEY"); err != nil {
		return Config{}, err
	}
	switch {
	case len(cfg.SigningSecret) > 0 && len(cfg.SigningSeed) > 0:
		return Config{}, errors.New("set only one of SIGNING_SECRET and SIGNING_ED25519_SEED")
	case len(cfg.SigningSecret) == 0 && len(cfg.SigningSeed) == 0:
		return Config{}, errors.New("one of SIGNING_SECRET or SIGNING_ED25519_SEED is required")
	case len(cfg.AnonymizerKey) == 0:
		return Config{}, errors.New("ANONYMIZER_KEY is required")
	case cfg.LedgerBackend == LedgerBackendPostgres && cfg.PostgresDSN == "":
		return Config{}, errors.New("POSTGRES_DSN is required for the postgres ledger backend")
	}
	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envString(name string, fallback string) string {
	if raw := strings.TrimSpace(os.Getenv(name)); raw != "" {
		return raw
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envHex(name string) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	value, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex encoded: %w", name, err)
	}
	return value, nil
}
