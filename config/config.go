package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// USDT is the token followed when TOKEN_CONTRACT_ADDRESS is not set.
const USDT = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

type Config struct {
	EthWSURL string `env:"ETH_WS_URL,required,notEmpty"`

	TokenContract string          `env:"TOKEN_CONTRACT_ADDRESS"`
	TokenDecimals int32           `env:"TOKEN_DECIMALS"`
	Threshold     decimal.Decimal `env:"THRESHOLD"`

	TTL             time.Duration `env:"TTL"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL"`
	ReconnectDelay  time.Duration `env:"RECONNECT_DELAY"`
	PollInterval    time.Duration `env:"RECEIPT_POLL_INTERVAL"`
	ConfirmTimeout  time.Duration `env:"CONFIRM_TIMEOUT"`
	DropAfterMisses int           `env:"DROP_AFTER_MISSES"`
	FetchWorkers    int           `env:"FETCH_WORKERS"`

	ExchangesFile string `env:"EXCHANGES_FILE"`
	CSVPath       string `env:"CSV_PATH"`

	DatabaseURI  string `env:"DATABASE_URI"`
	DatabaseName string `env:"DATABASE_NAME"`
	PostgresURL  string `env:"POSTGRES_URL"`

	RedisAddr    string   `env:"REDIS_ADDR"`
	RedisStream  string   `env:"REDIS_STREAM"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"`

	SinkRetryAttempts int           `env:"SINK_RETRY_ATTEMPTS"`
	SinkRetryBackoff  time.Duration `env:"SINK_RETRY_BACKOFF"`

	APIPort    string     `env:"API_PORT"`
	RecentSize int        `env:"RECENT_SIZE"`
	LogLevel   slog.Level `env:"LOG_LEVEL"`
}

func defaults() Config {
	return Config{
		TokenContract:     USDT,
		TokenDecimals:     6,
		Threshold:         decimal.NewFromInt(10000),
		TTL:               10 * time.Minute,
		SweepInterval:     time.Minute,
		ReconnectDelay:    3 * time.Second,
		PollInterval:      2 * time.Second,
		ConfirmTimeout:    30 * time.Minute,
		DropAfterMisses:   15,
		FetchWorkers:      8,
		ExchangesFile:     "exchanges.json",
		CSVPath:           "whale_delay.csv",
		DatabaseName:      "whale_tracker",
		RedisStream:       "whale:outcomes",
		KafkaTopic:        "whale-outcomes",
		SinkRetryAttempts: 3,
		SinkRetryBackoff:  500 * time.Millisecond,
		APIPort:           "3000",
		RecentSize:        50,
		LogLevel:          slog.LevelInfo,
	}
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, relying on environment variables")
	}

	config := defaults()
	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if !common.IsHexAddress(c.TokenContract) {
		errs = append(errs, fmt.Errorf("TOKEN_CONTRACT_ADDRESS %q is not an address", c.TokenContract))
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 77 {
		errs = append(errs, fmt.Errorf("TOKEN_DECIMALS must be within [0, 77], got %d", c.TokenDecimals))
	}
	if c.Threshold.IsNegative() {
		errs = append(errs, fmt.Errorf("THRESHOLD must not be negative, got %s", c.Threshold))
	}
	if c.TTL <= 0 {
		errs = append(errs, errors.New("TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required with KAFKA_BROKERS"))
	}
	return errors.Join(errs...)
}
