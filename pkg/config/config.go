package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CLIENT_MANAGER_SERVER_PORT.
const EnvPrefix = "CLIENT_MANAGER"

// Configuration holds all service configuration
type Configuration struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Security  SecurityConfig  `mapstructure:"security"`
	Business  BusinessConfig  `mapstructure:"business"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ServiceConfig holds service metadata
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the record store connection.
type DatabaseConfig struct {
	// DSN is a mysql://, mariadb://, postgres:// URL or a native MySQL DSN.
	DSN          string `mapstructure:"dsn"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
}

// CacheConfig holds the analytics summary cache settings. Disabled when Address is empty.
type CacheConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// Enabled reports whether a redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.Address != ""
}

// SchedulerConfig holds cron specs for background jobs.
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RecurringSpec string `mapstructure:"recurring_spec"`
	RemindersSpec string `mapstructure:"reminders_spec"`
}

// SecurityConfig holds the cron token and API rate limits.
type SecurityConfig struct {
	CronToken      string  `mapstructure:"cron_token"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// BusinessConfig is printed on documents and reminder messages.
type BusinessConfig struct {
	Name      string `mapstructure:"name"`
	Contact   string `mapstructure:"contact"`
	Phone     string `mapstructure:"phone"`
	Email     string `mapstructure:"email"`
	Address   string `mapstructure:"address"`
	PortalURL string `mapstructure:"portal_url"`
}

// Options select where configuration is read from.
type Options struct {
	EnvFile    string // optional .env file, loaded before anything else
	ConfigFile string // explicit config file; otherwise config.yaml is searched for
}

// Load reads configuration from an optional .env file, a yaml config file and
// CLIENT_MANAGER_* environment variables, in increasing order of precedence.
func Load(opts Options) (*Configuration, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/client-manager")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by existing deployments.
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("security.cron_token", EnvPrefix+"_SECURITY_CRON_TOKEN", "CRON_TOKEN")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the HTTP service cannot run without.
func (c *Configuration) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn (or DATABASE_URL) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Security.RateLimitRPS < 0 {
		return errors.New("security.rate_limit_rps must be >= 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "client-manager")
	v.SetDefault("service.environment", "production")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.ensure_schema", true)

	v.SetDefault("cache.address", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.key_prefix", "client-manager:")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.recurring_spec", "0 2 * * *")
	v.SetDefault("scheduler.reminders_spec", "0 9 * * *")

	v.SetDefault("security.cron_token", "")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)

	v.SetDefault("business.name", "Client Manager")
	v.SetDefault("business.contact", "")
	v.SetDefault("business.phone", "")
	v.SetDefault("business.email", "")
	v.SetDefault("business.address", "")
	v.SetDefault("business.portal_url", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}
