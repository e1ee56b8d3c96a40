package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverFile     = "file"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

var drivers = []string{DriverSQLite, DriverBadger, DriverFile, DriverDynamoDB, DriverMemory}

// TelegramConfig holds Telegram-specific settings
type TelegramConfig struct {
	Token string `yaml:"token"` // Bot token from @BotFather
}

// StoreConfig selects and configures the association store
type StoreConfig struct {
	Driver   string `yaml:"driver"`   // one of sqlite, badger, file, dynamodb, memory
	Path     string `yaml:"path"`     // sqlite database, badger directory or yaml file
	Table    string `yaml:"table"`    // DynamoDB table name
	Region   string `yaml:"region"`   // AWS region, defaults to the SDK's resolution
	Endpoint string `yaml:"endpoint"` // DynamoDB endpoint override, e.g. DynamoDB Local
}

// MetricsConfig holds the metrics server settings
type MetricsConfig struct {
	Listen string `yaml:"listen"` // address for /metrics; empty disables the server
}

// NotifyConfig limits outgoing Telegram messages
type NotifyConfig struct {
	Rate  float64 `yaml:"rate"`  // messages per second
	Burst int     `yaml:"burst"` // messages sent at once before limiting
}

// Config holds the Trip Helper configuration
type Config struct {
	Telegram  TelegramConfig `yaml:"telegram"`
	Allowlist []int64        `yaml:"allowlist"` // Telegram user IDs allowed to use the bot
	Store     StoreConfig    `yaml:"store"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Notify    NotifyConfig   `yaml:"notify"`
	LogFile   string         `yaml:"log_file"` // path to log file
	Debug     bool           `yaml:"debug"`    // enable debug logging
}

// Load reads and parses the config file from the given path
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads and parses the config file at path on fs
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case DriverSQLite:
			c.Store.Path = "triphelper.db"
		case DriverBadger:
			c.Store.Path = "triphelper.badger"
		case DriverFile:
			c.Store.Path = "triphelper.yaml"
		}
	}
	if c.Notify.Rate == 0 {
		c.Notify.Rate = 25
	}
	if c.Notify.Burst == 0 {
		c.Notify.Burst = 5
	}
}

func (c *Config) validate() error {
	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q is not one of %v", c.Store.Driver, drivers)
	}
	if c.Store.Driver == DriverDynamoDB && c.Store.Table == "" {
		return errors.New("store.table is required for the dynamodb driver")
	}
	if c.Notify.Rate < 0 || c.Notify.Burst < 0 {
		return errors.New("notify.rate and notify.burst cannot be negative")
	}
	return nil
}

// RequireTelegram checks the settings needed to run the Telegram bot
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if len(c.Allowlist) == 0 {
		return errors.New("allowlist cannot be empty")
	}
	return nil
}

// IsAllowed checks if the given Telegram user ID is in the allowlist
func (c *Config) IsAllowed(userID int64) bool {
	return slices.Contains(c.Allowlist, userID)
}
