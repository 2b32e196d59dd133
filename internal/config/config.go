package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server         `mapstructure:"server"`
	Database Database       `mapstructure:"database"`
	Email    Email          `mapstructure:"email"`
	Schedule Schedule       `mapstructure:"schedule"`
	Retry    retry.Strategy `mapstructure:"retry"` // infra connect retries (db ping)
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Email holds outbound mail configuration for both providers.
//
// Provider is either "smtp" (default) or "sendgrid". The SMTP block mirrors
// a nodemailer-style transport: an optional named service preset, explicit
// host/port otherwise, and pool/timeout tunables. Timeouts and the retry
// base delay are in milliseconds.
type Email struct {
	Provider string `mapstructure:"provider"`
	Service  string `mapstructure:"service"` // named preset overriding host/port
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Secure   bool   `mapstructure:"secure"` // implicit TLS; defaults to port == 465
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`

	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	SendGridFrom   string `mapstructure:"sendgrid_from"`

	ConnectionTimeoutMs int  `mapstructure:"connection_timeout_ms"`
	GreetingTimeoutMs   int  `mapstructure:"greeting_timeout_ms"`
	SocketTimeoutMs     int  `mapstructure:"socket_timeout_ms"`
	Pool                bool `mapstructure:"pool"`
	MaxConnections      int  `mapstructure:"max_connections"`
	MaxMessages         int  `mapstructure:"max_messages"` // per connection before recycling
	RetryCount          int  `mapstructure:"retry_count"`
	RetryBaseDelayMs    int  `mapstructure:"retry_base_delay_ms"`
}

// Schedule holds the daily birthday check schedule.
type Schedule struct {
	DailyAt string `mapstructure:"daily_at"` // local wall-clock time, "15:04" format
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"server.http_port": "PORT",

		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",

		"email.provider": "EMAIL_PROVIDER",
		"email.service":  "EMAIL_SERVICE",
		"email.host":     "EMAIL_HOST",
		"email.port":     "EMAIL_PORT",
		"email.secure":   "EMAIL_SECURE",
		"email.user":     "EMAIL_USER",
		"email.password": "EMAIL_PASS",
		"email.from":     "EMAIL_FROM",

		"email.sendgrid_api_key": "SENDGRID_API_KEY",
		"email.sendgrid_from":    "SENDGRID_FROM",

		"email.connection_timeout_ms": "SMTP_CONNECTION_TIMEOUT",
		"email.greeting_timeout_ms":   "SMTP_GREETING_TIMEOUT",
		"email.socket_timeout_ms":     "SMTP_SOCKET_TIMEOUT",
		"email.pool":                  "SMTP_POOL",
		"email.max_connections":       "SMTP_MAX_CONNECTIONS",
		"email.max_messages":          "SMTP_MAX_MESSAGES",
		"email.retry_count":           "EMAIL_RETRY_COUNT",
		"email.retry_base_delay_ms":   "EMAIL_RETRY_BASE_DELAY_MS",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

func setDefaults() {
	viper.SetDefault("server.http_port", ":3000")
	viper.SetDefault("schedule.daily_at", "07:00")

	viper.SetDefault("email.provider", "smtp")
	viper.SetDefault("email.port", 587)
	viper.SetDefault("email.connection_timeout_ms", 15000)
	viper.SetDefault("email.greeting_timeout_ms", 10000)
	viper.SetDefault("email.socket_timeout_ms", 20000)
	viper.SetDefault("email.pool", true)
	viper.SetDefault("email.max_connections", 3)
	viper.SetDefault("email.max_messages", 50)
	viper.SetDefault("email.retry_count", 3)
	viper.SetDefault("email.retry_base_delay_ms", 750)
}

// Must loads and validates the configuration from file and environment variables.
//
// It panics if configuration cannot be read or unmarshalled.
func Must() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	// Implicit TLS defaults to on for the SMTPS port unless set explicitly.
	if !viper.IsSet("email.secure") {
		cfg.Email.Secure = cfg.Email.Port == 465
	}

	return &cfg
}
