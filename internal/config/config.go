package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	FriendCode FriendCodeConfig
	Fridge     FridgeConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies
	Environment string // "development", "production", "test"
	Debug       bool
	LogLevel    string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type FriendCodeConfig struct {
	TTL             time.Duration
	RedeemRateLimit int           // redemption attempts per account per window
	RedeemWindow    time.Duration // window for RedeemRateLimit
	SweepSchedule   string        // cron schedule for clearing lapsed codes; empty disables
}

type FridgeConfig struct {
	Capacity int
	ItemSize int
	Gap      int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SECURE", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "fridgemate")
	v.SetDefault("DB_PASSWORD", "fridgemate")
	v.SetDefault("DB_NAME", "fridgemate")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MIGRATIONS_PATH", "migrations")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("FRIEND_CODE_TTL", "15m")
	v.SetDefault("REDEEM_RATE_LIMIT", 10)
	v.SetDefault("REDEEM_RATE_WINDOW", "15m")
	v.SetDefault("CODE_SWEEP_SCHEDULE", "@every 5m")

	v.SetDefault("FRIDGE_CAPACITY", 6)
	v.SetDefault("FRIDGE_ITEM_SIZE", 100)
	v.SetDefault("FRIDGE_GAP", 20)
}

// Load reads configuration from environment variables, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("SERVER_HOST"),
			Port:        v.GetInt("SERVER_PORT"),
			Secure:      v.GetBool("SERVER_SECURE"),
			Environment: v.GetString("APP_ENV"),
			Debug:       v.GetBool("DEBUG"),
			LogLevel:    v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetInt("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MigrationsPath: v.GetString("DB_MIGRATIONS_PATH"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		FriendCode: FriendCodeConfig{
			TTL:             v.GetDuration("FRIEND_CODE_TTL"),
			RedeemRateLimit: v.GetInt("REDEEM_RATE_LIMIT"),
			RedeemWindow:    v.GetDuration("REDEEM_RATE_WINDOW"),
			SweepSchedule:   v.GetString("CODE_SWEEP_SCHEDULE"),
		},
		Fridge: FridgeConfig{
			Capacity: v.GetInt("FRIDGE_CAPACITY"),
			ItemSize: v.GetInt("FRIDGE_ITEM_SIZE"),
			Gap:      v.GetInt("FRIDGE_GAP"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FriendCode.TTL <= 0 {
		return fmt.Errorf("FRIEND_CODE_TTL must be positive, got %s", c.FriendCode.TTL)
	}
	if c.FriendCode.RedeemRateLimit <= 0 {
		return fmt.Errorf("REDEEM_RATE_LIMIT must be positive, got %d", c.FriendCode.RedeemRateLimit)
	}
	if c.FriendCode.RedeemWindow <= 0 {
		return fmt.Errorf("REDEEM_RATE_WINDOW must be positive, got %s", c.FriendCode.RedeemWindow)
	}
	if c.Fridge.Capacity <= 0 {
		return fmt.Errorf("FRIDGE_CAPACITY must be positive, got %d", c.Fridge.Capacity)
	}
	if c.Fridge.ItemSize <= 0 {
		return fmt.Errorf("FRIDGE_ITEM_SIZE must be positive, got %d", c.Fridge.ItemSize)
	}
	if c.Fridge.Gap < 0 {
		return fmt.Errorf("FRIDGE_GAP must not be negative, got %d", c.Fridge.Gap)
	}
	return nil
}
