package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // образы без zoneinfo

	"github.com/spf13/viper"
)

type DBConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"` // postgres | sqlite
	SQLitePath      string `mapstructure:"SQLITE_PATH"`
	Host            string `mapstructure:"DB_HOST"`
	Port            int    `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	TimeZone        string `mapstructure:"DB_TIMEZONE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifeTime int    `mapstructure:"DB_CONN_MAX_LIFETIME_MIN"` // минут
}

type Config struct {
	Env      string `mapstructure:"ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	ClinicTimeZone   string        `mapstructure:"CLINIC_TIMEZONE"`
	SlotHorizonDays  int           `mapstructure:"SLOT_HORIZON_DAYS"`
	GenerateInterval time.Duration `mapstructure:"GENERATE_INTERVAL"` // 0 выключает фоновую генерацию

	RedisURL        string        `mapstructure:"REDIS_URL"`
	RateLimit       int           `mapstructure:"RATE_LIMIT"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	KafkaBrokers       []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic         string        `mapstructure:"KAFKA_TOPIC"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`

	OTelEnabled       bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`

	DB DBConfig `mapstructure:",squash"`
}

var defaults = map[string]any{
	"ENV":                         "development",
	"HTTP_ADDR":                   ":8080",
	"GRPC_ADDR":                   ":50051",
	"JWT_SECRET":                  "",
	"CLINIC_TIMEZONE":             "America/Sao_Paulo",
	"SLOT_HORIZON_DAYS":           30,
	"GENERATE_INTERVAL":           "0s",
	"REDIS_URL":                   "",
	"RATE_LIMIT":                  120,
	"RATE_LIMIT_WINDOW":           "1m",
	"KAFKA_BROKERS":               "",
	"KAFKA_TOPIC":                 "scheduling.events",
	"OUTBOX_POLL_INTERVAL":        "2s",
	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SAMPLING_RATIO":         1.0,
	"DB_DRIVER":                   "postgres",
	"SQLITE_PATH":                 "scheduling.db",
	"DB_HOST":                     "postgres",
	"DB_PORT":                     5432,
	"DB_USER":                     "booking",
	"DB_PASSWORD":                 "booking",
	"DB_NAME":                     "booking_db",
	"DB_SSLMODE":                  "disable",
	"DB_TIMEZONE":                 "UTC",
	"DB_MAX_OPEN_CONNS":           10,
	"DB_MAX_IDLE_CONNS":           5,
	"DB_CONN_MAX_LIFETIME_MIN":    30,
}

// Load читает конфигурацию из окружения и, если есть, из .env.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	// .env необязателен
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate проверяет, что с конфигурацией можно стартовать.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("invalid DB config: SQLITE_PATH must not be empty")
		}
	default:
		return fmt.Errorf("invalid DB config: unknown driver %q", c.DB.Driver)
	}

	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.SlotHorizonDays <= 0 {
		return fmt.Errorf("SLOT_HORIZON_DAYS must be positive, got %d", c.SlotHorizonDays)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1], got %v", c.OTelSamplingRatio)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location возвращает часовой пояс клиники, в нём живут даты и время слотов.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimeZone, err)
	}
	return loc, nil
}
