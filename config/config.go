package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"pixelponies/database"
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramBotToken    string
	TelegramBotUsername string // Used to build referral links, without the leading @
	TelegramGroupChatID int64  // Group where races are announced
	AdminTelegramIDs    []int64

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Chain configuration
	BaseRPCURL      string
	ChainID         int64
	BotPrivateKey   string // Hex encoded, without 0x
	TokenAddress    string
	TransferTimeout time.Duration // How long to wait for a transfer receipt
	TokenSymbol     string

	// Race configuration
	BettingWindow      time.Duration
	StaleRaceThreshold time.Duration
	TempSelectionTTL   time.Duration
	CarryOverUnpaid    bool
	PayoutSplit        []int64 // Basis points for first, second and third place

	// Prize pool policy
	PrizePolicy        string // flat, linear or tiered
	PrizePoolBase      int64
	PrizePoolPerMember int64
	PrizeTierCohort    int64
	PrizeTierRates     []int64

	// Rewards, in whole tokens
	SignupBonus    int64
	RaceReward     int64
	ReferralReward int64
	ReferredBonus  int64

	// Scheduler
	RaceCron        string
	WarningCron     string
	MaintenanceCron string
	ReminderCron    string // empty when REMINDER_CRON is "off"

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty for local-only events

	// Logging
	LogLevel string
	LogFile  string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // console, otlp or none
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int64

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

// IsAdmin reports whether the Telegram user may run admin commands
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	var errs []string
	parse := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	config := &Config{
		// Telegram
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramBotUsername: strings.TrimPrefix(os.Getenv("TELEGRAM_BOT_USERNAME"), "@"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Chain
		BaseRPCURL:    getEnvWithDefault("BASE_RPC_URL", "https://mainnet.base.org"),
		BotPrivateKey: strings.TrimPrefix(os.Getenv("BASE_PRIVATE_KEY"), "0x"),
		TokenAddress:  getEnvWithDefault("PONY_TOKEN_ADDRESS", "0x6ab297799335E7b0f60d9e05439Df156cf694Ba7"),
		TokenSymbol:   getEnvWithDefault("TOKEN_SYMBOL", "PONY"),

		// Prize pool
		PrizePolicy: getEnvWithDefault("PRIZE_POLICY", "flat"),

		// Scheduler
		RaceCron:        getEnvWithDefault("RACE_CRON", "*/10 * * * *"),
		WarningCron:     getEnvWithDefault("WARNING_CRON", "9-59/10 * * * *"),
		MaintenanceCron: getEnvWithDefault("MAINTENANCE_CRON", "*/15 * * * *"),
		ReminderCron:    getEnvWithDefault("REMINDER_CRON", "0 * * * *"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Logging
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		// OpenTelemetry
		OTelServiceName:  getEnvWithDefault("OTEL_SERVICE_NAME", "pixelponies"),
		OTelExporterType: getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint: getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if strings.EqualFold(config.ReminderCron, "off") {
		config.ReminderCron = ""
	}

	var err error
	config.TelegramGroupChatID, err = getEnvInt64("TELEGRAM_GROUP_CHAT_ID", 0)
	parse(err)
	config.AdminTelegramIDs, err = parseInt64List("ADMIN_TELEGRAM_IDS", nil)
	parse(err)

	config.ChainID, err = getEnvInt64("BASE_CHAIN_ID", 8453)
	parse(err)
	config.TransferTimeout, err = getEnvDuration("TRANSFER_TIMEOUT", 2*time.Minute)
	parse(err)

	config.BettingWindow, err = getEnvDuration("BETTING_WINDOW", 10*time.Minute)
	parse(err)
	config.StaleRaceThreshold, err = getEnvDuration("STALE_RACE_THRESHOLD", time.Hour)
	parse(err)
	config.TempSelectionTTL, err = getEnvDuration("TEMP_SELECTION_TTL", time.Hour)
	parse(err)
	config.CarryOverUnpaid, err = getEnvBool("CARRY_OVER_UNPAID", false)
	parse(err)
	config.PayoutSplit, err = parseInt64List("PAYOUT_SPLIT", []int64{8500, 1250, 250})
	parse(err)

	config.PrizePoolBase, err = getEnvInt64("PRIZE_POOL_BASE", 700)
	parse(err)
	config.PrizePoolPerMember, err = getEnvInt64("PRIZE_POOL_PER_MEMBER", 100)
	parse(err)
	config.PrizeTierCohort, err = getEnvInt64("PRIZE_TIER_COHORT", 100)
	parse(err)
	config.PrizeTierRates, err = parseInt64List("PRIZE_TIER_RATES", []int64{100, 50, 25, 10})
	parse(err)

	config.SignupBonus, err = getEnvInt64("SIGNUP_BONUS", 10_000_000_000)
	parse(err)
	config.RaceReward, err = getEnvInt64("RACE_REWARD", 100_000_000)
	parse(err)
	config.ReferralReward, err = getEnvInt64("REFERRAL_REWARD", 250_000_000)
	parse(err)
	config.ReferredBonus, err = getEnvInt64("REFERRED_BONUS", 100)
	parse(err)

	config.OTelEnabled, err = getEnvBool("OTEL_ENABLED", false)
	parse(err)
	config.OTelExportIntervalMillis, err = getEnvInt64("OTEL_EXPORT_INTERVAL_MILLIS", 60000)
	parse(err)

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if len(config.PayoutSplit) != 3 {
		return nil, fmt.Errorf("PAYOUT_SPLIT must list exactly three values")
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.TelegramBotToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
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

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(strings.ReplaceAll(value, "_", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return parsed, nil
}

// getEnvDuration accepts Go durations ("90s", "10m") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return parsed, nil
}

// parseInt64List parses a comma separated list of integers, skipping blanks
func parseInt64List(key string, defaultValue []int64) ([]int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	var result []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s contains a non-integer value %q", key, part)
		}
		result = append(result, id)
	}
	return result, nil
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
		Environment:         "test",
		TelegramBotToken:    "test-token",
		TelegramBotUsername: "PixelPoniesBot",
		AdminTelegramIDs:    []int64{999999},
		ChainID:             8453,
		TokenSymbol:         "PONY",
		TransferTimeout:     time.Minute,
		BettingWindow:       10 * time.Minute,
		StaleRaceThreshold:  time.Hour,
		TempSelectionTTL:    time.Hour,
		PayoutSplit:         []int64{8500, 1250, 250},
		PrizePolicy:         "flat",
		PrizePoolBase:       700,
		PrizePoolPerMember:  100,
		PrizeTierCohort:     100,
		PrizeTierRates:      []int64{100, 50, 25, 10},
		SignupBonus:         10_000_000_000,
		RaceReward:          100_000_000,
		ReferralReward:      250_000_000,
		ReferredBonus:       100,
		RaceCron:            "*/10 * * * *",
		WarningCron:         "9-59/10 * * * *",
		MaintenanceCron:     "*/15 * * * *",
		ReminderCron:        "0 * * * *",
		LogLevel:            "debug",
		OTelServiceName:     "pixelponies-test",
		OTelExporterType:    "none",
	}
}
