package config

import (
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	TelegramToken string  `envconfig:"TELEGRAM_TOKEN"`
	AdminIDs      []int64 `envconfig:"ADMIN_IDS"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/bookings.db"`
	DBDSN      string `envconfig:"DB_DSN"`

	Timezone string `envconfig:"BOOKING_TZ" default:"Europe/Minsk"`

	CalendarID              string        `envconfig:"CALENDAR_ID"`
	CalendarCredentialsFile string        `envconfig:"CALENDAR_CREDENTIALS_FILE" default:"credentials.json"`
	CalendarTokenFile       string        `envconfig:"CALENDAR_TOKEN_FILE" default:"token.json"`
	CalendarTimeout         time.Duration `envconfig:"CALENDAR_TIMEOUT" default:"10s"`
	ReconcileInterval       time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`

	HTTPAddr  string   `envconfig:"HTTP_ADDR"`
	APITokens []string `envconfig:"API_TOKENS"`
	JWTSecret string   `envconfig:"JWT_SECRET"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"booking.events"`

	location *time.Location
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return Parse()
}

// Parse заполняет конфиг из окружения и проверяет его
func Parse() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite driver")
		}
	case DriverPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.TelegramToken == "" && c.HTTPAddr == "" {
		return fmt.Errorf("either TELEGRAM_TOKEN or HTTP_ADDR must be set")
	}

	if c.CalendarTimeout <= 0 {
		return fmt.Errorf("CALENDAR_TIMEOUT must be positive")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	return nil
}

// Location таймзона слотов
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsAdmin проверяет что пользователь Telegram - администратор
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CalendarEnabled внешний календарь настроен
func (c *Config) CalendarEnabled() bool {
	return c.CalendarID != ""
}
