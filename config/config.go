// Package config handles application configuration management using Viper
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// DefaultConfigPath is used when no config file is given on the command line.
const DefaultConfigPath = "./collector.yaml"

// Config holds the full application configuration
type Config struct {
	Stop     StopConfig
	Binance  BinanceConfig
	Telegram TelegramConfig
	Storage  StorageConfig
	LogLevel string
}

// StopConfig holds the trailing stop and reconciliation parameters
type StopConfig struct {
	InitialAF                float64
	AFIncrement              float64
	MaxAF                    float64
	CheckInterval            time.Duration
	SLUpdateThresholdPercent float64
	Enabled                  bool
}

// BinanceConfig holds Binance exchange credentials
type BinanceConfig struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled bool
	Token   string
	Users   []int
}

// StorageConfig holds the trade-ledger storage location
type StorageConfig struct {
	Path string
}

// Load reads configuration from the given yaml file, with environment
// variables taking precedence. A missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := v.SafeWriteConfigAs(configPath); err != nil {
		return nil, fmt.Errorf("failed to write default config: %w", err)
	}

	interval, err := str2duration.ParseDuration(v.GetString("stop.check_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval: %w", err)
	}

	config := &Config{
		Stop: StopConfig{
			InitialAF:                v.GetFloat64("stop.initial_af"),
			AFIncrement:              v.GetFloat64("stop.af_increment"),
			MaxAF:                    v.GetFloat64("stop.max_af"),
			CheckInterval:            interval,
			SLUpdateThresholdPercent: v.GetFloat64("stop.sl_update_threshold_percent"),
			Enabled:                  v.GetBool("stop.enabled"),
		},
		Binance: BinanceConfig{
			APIKey:     v.GetString("binance.api_key"),
			SecretKey:  v.GetString("binance.secret_key"),
			UseTestnet: v.GetBool("binance.use_testnet"),
		},
		Telegram: TelegramConfig{
			Enabled: v.GetBool("telegram.enabled"),
			Token:   v.GetString("telegram.token"),
			Users:   v.GetIntSlice("telegram.users"),
		},
		Storage: StorageConfig{
			Path: v.GetString("storage.path"),
		},
		LogLevel: v.GetString("log_level"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stop.initial_af", 0.02)
	v.SetDefault("stop.af_increment", 0.02)
	v.SetDefault("stop.max_af", 0.2)
	v.SetDefault("stop.check_interval", "60s")
	v.SetDefault("stop.sl_update_threshold_percent", 0.001)
	v.SetDefault("stop.enabled", true)
	v.SetDefault("binance.use_testnet", false)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("storage.path", "./collector.db")
	v.SetDefault("log_level", "info")
}

func (c *Config) validate() error {
	if c.Stop.InitialAF <= 0 || c.Stop.AFIncrement <= 0 {
		return fmt.Errorf("initial_af and af_increment must be positive")
	}
	if c.Stop.MaxAF < c.Stop.InitialAF {
		return fmt.Errorf("max_af %.4f is below initial_af %.4f", c.Stop.MaxAF, c.Stop.InitialAF)
	}
	if c.Stop.SLUpdateThresholdPercent < 0 {
		return fmt.Errorf("sl_update_threshold_percent must not be negative")
	}
	if c.Stop.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	return nil
}
