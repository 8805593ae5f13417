package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"ratewatcher/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig locates the subscription snapshot file.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// FeedConfig covers the marketplace offers feed.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	Origin         string        `mapstructure:"origin"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ScheduleConfig governs the daily evaluation trigger.
type ScheduleConfig struct {
	At       string `mapstructure:"at"`
	Timezone string `mapstructure:"timezone"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// NotifyConfig shapes notification content.
type NotifyConfig struct {
	MonthlyUsageKWh  int64 `mapstructure:"monthly_usage_kwh"`
	MaxCheaperOffers int   `mapstructure:"max_cheaper_offers"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ratewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.path", "rates.json")

	v.SetDefault("feed.url", "https://www.energizect.com/ectr_search_api/offers")
	v.SetDefault("feed.origin", "https://www.energizect.com")
	v.SetDefault("feed.request_timeout", "30s")

	v.SetDefault("schedule.at", "10:00")
	v.SetDefault("schedule.timezone", "America/New_York")

	v.SetDefault("notify.monthly_usage_kwh", 750)
	v.SetDefault("notify.max_cheaper_offers", 3)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url must not be empty")
	}
	if c.Notify.MonthlyUsageKWh <= 0 {
		return fmt.Errorf("notify.monthly_usage_kwh must be greater than zero")
	}
	if c.Notify.MaxCheaperOffers <= 0 {
		return fmt.Errorf("notify.max_cheaper_offers must be greater than zero")
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at must be HH:MM, got %q", c.Schedule.At)
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone %q is not a valid zone", c.Schedule.Timezone)
		}
	}
	return nil
}

// ScheduleLabel renders the trigger time the way user-facing replies show it.
func (c *Config) ScheduleLabel() string {
	if c.Schedule.Timezone == "" {
		return c.Schedule.At
	}
	return fmt.Sprintf("%s (%s)", c.Schedule.At, c.Schedule.Timezone)
}
