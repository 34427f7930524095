package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "PeerWallet"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultTokenTTL         = 24 * time.Hour
	defaultBcryptCost       = 10
	defaultTransferRetries  = 3
	defaultTransferBackoff  = 20 * time.Millisecond
	defaultCORSAllowOrigins = "*"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	tokenTTLSecondsEnvVar   = "TOKEN_TTL_SECONDS"
	tokenTTLDurationEnvVar  = "TOKEN_TTL"
)

// Wallet store backends accepted in WALLET_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName              string
	AppEnv               string
	Port                 string
	LogLevel             string
	DatabaseURL          string
	RedisURL             string
	WalletStore          string
	JWTSecret            string
	TokenTTL             time.Duration
	BcryptCost           int
	TransferMaxRetries   int
	TransferRetryBackoff time.Duration
	ShutdownPeriod       time.Duration
	AutoMigrate          bool
	CORSAllowOrigins     string
}

// Load reads an optional .env file, then populates a Config from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", defaultCORSAllowOrigins),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = durationEnv(tokenTTLSecondsEnvVar, tokenTTLDurationEnvVar, defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.TransferRetryBackoff, err = durationEnv("", "TRANSFER_RETRY_BACKOFF", defaultTransferBackoff); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", defaultBcryptCost); err != nil {
		return Config{}, err
	}
	if cfg.TransferMaxRetries, err = intEnv("TRANSFER_MAX_RETRIES", defaultTransferRetries); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = boolEnv("DB_AUTO_MIGRATE", true); err != nil {
		return Config{}, err
	}

	defaultStore := StoreMemory
	if cfg.DatabaseURL != "" {
		defaultStore = StorePostgres
	}
	cfg.WalletStore = strings.ToLower(getEnv("WALLET_STORE", defaultStore))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.TransferMaxRetries < 0 {
		return fmt.Errorf("TRANSFER_MAX_RETRIES must not be negative")
	}
	// Accounts live in Postgres whenever DATABASE_URL is set and in memory
	// otherwise; wallets must survive exactly as long as their accounts.
	switch c.WalletStore {
	case StoreMemory:
		if c.DatabaseURL != "" {
			return fmt.Errorf("WALLET_STORE=%s cannot be combined with DATABASE_URL", StoreMemory)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when WALLET_STORE=%s", StorePostgres)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when WALLET_STORE=%s", StoreRedis)
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when WALLET_STORE=%s", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown WALLET_STORE %q", c.WalletStore)
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// durationEnv prefers an integer-seconds variable, then a Go duration string.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
