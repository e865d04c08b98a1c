package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffler/database"
	"raffler/models"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// DefaultNativeMint is the wrapped representation of the native asset
const DefaultNativeMint = "So11111111111111111111111111111111111111112"

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Program identity
	ProgramID        models.Address // Seeds every derived raffle and sponsor address
	ProgramAuthority models.Address // May delete raffles and recover escrow
	OracleAuthority  models.Address // Only signer accepted by ConsumeRandomness
	NativeMint       models.Address
	FeesWallet       models.Address

	// Administrative defaults seeded into program_config on startup
	RaffleFee       uint64
	ProceedsShareBP uint16

	// Randomness request worker
	RandomnessRetryInterval time.Duration
	RandomnessStaleAfter    time.Duration

	// OpenTelemetry configuration
	OTelEnabled      bool
	OTelExporterType string // "console" or "otlp"
	OTelEndpoint     string
	OTelServiceName  string

	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadEnvFile copies a .env file in the working directory, if present, into the environment.
// Variables already set are not overridden.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}
}

// load loads configuration from a .env file, if present, and environment variables
func load() (*Config, error) {
	LoadEnvFile()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Fees
		ProceedsShareBP: 250,

		// Worker
		RandomnessRetryInterval: 30 * time.Second,
		RandomnessStaleAfter:    2 * time.Minute,

		// OpenTelemetry
		OTelEnabled:      os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType: getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelEndpoint:     getEnvWithDefault("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:  getEnvWithDefault("OTEL_SERVICE_NAME", "raffler"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	addresses := []struct {
		key      string
		target   *models.Address
		fallback string
	}{
		{"PROGRAM_ID", &config.ProgramID, ""},
		{"PROGRAM_AUTHORITY", &config.ProgramAuthority, ""},
		{"ORACLE_AUTHORITY", &config.OracleAuthority, ""},
		{"FEES_WALLET", &config.FeesWallet, ""},
		{"NATIVE_MINT", &config.NativeMint, DefaultNativeMint},
	}
	for _, a := range addresses {
		value := getEnvWithDefault(a.key, a.fallback)
		if value == "" {
			continue
		}
		addr, err := models.ParseAddress(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", a.key, err)
		}
		*a.target = addr
	}

	// Override defaults if environment variables are set
	if fee := os.Getenv("RAFFLE_FEE"); fee != "" {
		parsed, err := strconv.ParseUint(fee, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RAFFLE_FEE: %w", err)
		}
		config.RaffleFee = parsed
	}
	if share := os.Getenv("PROCEEDS_SHARE_BP"); share != "" {
		parsed, err := strconv.ParseUint(share, 10, 16)
		if err != nil || parsed > models.BasisPointsDenominator {
			return nil, fmt.Errorf("invalid PROCEEDS_SHARE_BP: %q", share)
		}
		config.ProceedsShareBP = uint16(parsed)
	}
	if interval := os.Getenv("RANDOMNESS_RETRY_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.RandomnessRetryInterval = parsed
		}
	}
	if stale := os.Getenv("RANDOMNESS_STALE_AFTER"); stale != "" {
		if parsed, err := time.ParseDuration(stale); err == nil {
			config.RandomnessStaleAfter = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.ProgramID.IsZero() {
			return nil, fmt.Errorf("PROGRAM_ID is required")
		}
		if config.ProgramAuthority.IsZero() {
			return nil, fmt.Errorf("PROGRAM_AUTHORITY is required")
		}
		if config.OracleAuthority.IsZero() {
			return nil, fmt.Errorf("ORACLE_AUTHORITY is required")
		}
		if config.FeesWallet.IsZero() {
			return nil, fmt.Errorf("FEES_WALLET is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:             "test",
		ProgramID:               models.Address{0xAA},
		ProgramAuthority:        models.Address{0xAB},
		OracleAuthority:         models.Address{0xAC},
		FeesWallet:              models.Address{0xAD},
		NativeMint:              models.MustParseAddress(DefaultNativeMint),
		ProceedsShareBP:         250,
		RandomnessRetryInterval: time.Second,
		RandomnessStaleAfter:    time.Minute,
		OTelServiceName:         "raffler-test",
		LogLevel:                "debug",
	}
}
