package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultApprovalAmount is the allowance granted to the voting engine when a vote needs more
// than the current allowance: 1e15 base units, i.e. one billion USDC.
const DefaultApprovalAmount = "1000000000000000"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string

	// Ledger connection
	RPCURL              string
	ChainID             int64
	SignerPrivateKey    string
	ContractsConfigPath string

	// Media storage
	PinataJWT  string
	PinataURL  string
	GatewayURL string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	ViewCacheTTL  time.Duration

	// ViewRefreshInterval is how often live battle views are re-read; 0 disables it
	ViewRefreshInterval time.Duration

	// Database configuration (flow journal; optional)
	DatabaseURL string

	// JWT configuration
	JWTSecret string

	// Flow tuning
	ActivationWait         time.Duration
	ActivationPollInterval time.Duration
	ApprovalAmount         *big.Int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	approval, ok := new(big.Int).SetString(getEnv("APPROVAL_AMOUNT", DefaultApprovalAmount), 10)
	if !ok {
		return nil, fmt.Errorf("APPROVAL_AMOUNT must be a base-10 integer")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    getEnv("ENV", "development"),
		AllowedOrigins:         getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RPCURL:                 getEnv("RPC_URL", "https://sepolia.base.org"),
		ChainID:                getEnvAsInt64("CHAIN_ID", 84532),
		SignerPrivateKey:       getEnv("SIGNER_PRIVATE_KEY", ""),
		ContractsConfigPath:    getEnv("CONTRACTS_CONFIG_PATH", ""),
		PinataJWT:              getEnv("PINATA_JWT", ""),
		PinataURL:              getEnv("PINATA_URL", "https://api.pinata.cloud"),
		GatewayURL:             getEnv("GATEWAY_URL", "https://gateway.pinata.cloud"),
		RedisURL:               getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		ViewCacheTTL:           getEnvAsDuration("VIEW_CACHE_TTL", 15*time.Second),
		ViewRefreshInterval:    getEnvAsDuration("VIEW_REFRESH_INTERVAL", 30*time.Second),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		ActivationWait:         getEnvAsDuration("ACTIVATION_WAIT", 30*time.Second),
		ActivationPollInterval: getEnvAsDuration("ACTIVATION_POLL_INTERVAL", time.Second),
		ApprovalAmount:         approval,
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures the configuration shared by every binary is usable
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.ActivationPollInterval <= 0 || c.ActivationWait < c.ActivationPollInterval {
		return fmt.Errorf("ACTIVATION_WAIT must be at least ACTIVATION_POLL_INTERVAL, which must be positive")
	}

	if c.ApprovalAmount == nil || c.ApprovalAmount.Sign() <= 0 {
		return fmt.Errorf("APPROVAL_AMOUNT must be positive")
	}

	// Media uploads cannot work without credentials in production
	if c.PinataJWT == "" && c.IsProduction() {
		return fmt.Errorf("PINATA_JWT is required in production")
	}

	return nil
}

// ValidateServer adds the checks only the HTTP API needs
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// HasSigner reports whether write flows can sign transactions
func (c *Config) HasSigner() bool {
	return c.SignerPrivateKey != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as an integer with a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration syntax ("30s") or plain seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
