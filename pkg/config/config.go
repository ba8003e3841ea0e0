// Package config loads data browser settings from defaults, an optional
// config file, DATABROWSER_* environment variables and command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DATABROWSER_DATABASE_DSN for database.dsn.
const EnvPrefix = "DATABROWSER"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	DataBrowser DataBrowserConfig `mapstructure:"data_browser"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	BasePath        string        `mapstructure:"base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// ORM is "gorm" or "bun".
	ORM string `mapstructure:"orm"`
	// LogLevel is the GORM SQL logger level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dev   bool   `mapstructure:"dev"`
}

type DataBrowserConfig struct {
	AllowPublic     bool   `mapstructure:"allow_public"`
	DefaultRowLimit int    `mapstructure:"default_row_limit"`
	Dev             bool   `mapstructure:"dev"`
	DevServerURL    string `mapstructure:"dev_server_url"`
	FrontendDSN     string `mapstructure:"frontend_dsn"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

var defaults = map[string]interface{}{
	"server.address":                 ":8080",
	"server.base_path":               "/data_browser",
	"server.shutdown_timeout":        "15s",
	"database.driver":                "sqlite",
	"database.dsn":                   "databrowser.db",
	"database.orm":                   "gorm",
	"database.log_level":             "warn",
	"log.level":                      "info",
	"log.dev":                        false,
	"data_browser.allow_public":      false,
	"data_browser.default_row_limit": 1000,
	"data_browser.dev":               false,
	"data_browser.dev_server_url":    "http://127.0.0.1:3000",
	"data_browser.frontend_dsn":      "",
	"auth.jwt_secret":                "",
	"auth.issuer":                    "databrowser",
	"auth.token_ttl":                 "24h",
	"metrics.enabled":                false,
	"metrics.address":                ":9090",
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"address":           "server.address",
	"base-path":         "server.base_path",
	"db-driver":         "database.driver",
	"dsn":               "database.dsn",
	"orm":               "database.orm",
	"log-level":         "log.level",
	"dev":               "data_browser.dev",
	"allow-public":      "data_browser.allow_public",
	"default-row-limit": "data_browser.default_row_limit",
	"jwt-secret":        "auth.jwt_secret",
	"metrics":           "metrics.enabled",
	"metrics-address":   "metrics.address",
}

// AddFlags registers the flags understood by BindFlags.
func AddFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "config file path")
	flags.String("address", ":8080", "HTTP listen address")
	flags.String("base-path", "/data_browser", "URL prefix of the data browser")
	flags.String("db-driver", "sqlite", "database driver (sqlite, postgres)")
	flags.String("dsn", "databrowser.db", "database DSN")
	flags.String("orm", "gorm", "database layer (gorm, bun)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("dev", false, "development mode")
	flags.Bool("allow-public", false, "allow saved views to be served publicly")
	flags.Int("default-row-limit", 1000, "row limit for queries without one")
	flags.String("jwt-secret", "", "secret used to sign and check tokens")
	flags.Bool("metrics", false, "enable Prometheus metrics")
	flags.String("metrics-address", ":9090", "metrics server address")
}

// BindFlags binds every known flag present in flags to its config key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// New returns a viper instance carrying the defaults and env binding.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. path may be empty, in which case the "config"
// flag is consulted. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := New()
	if err := BindFlags(v, flags); err != nil {
		return nil, err
	}

	if path == "" && flags != nil {
		if flag := flags.Lookup("config"); flag != nil {
			path = flag.Value.String()
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Server.BasePath = "/" + strings.Trim(c.Server.BasePath, "/")
	if c.Server.BasePath == "/" {
		c.Server.BasePath = ""
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "sqlite":
	case "postgres", "postgresql", "pg":
		c.Database.Driver = "postgres"
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	c.Database.ORM = strings.ToLower(c.Database.ORM)
	if c.Database.ORM != "gorm" && c.Database.ORM != "bun" {
		return fmt.Errorf("unsupported orm %q", c.Database.ORM)
	}

	if c.DataBrowser.DefaultRowLimit < 1 {
		c.DataBrowser.DefaultRowLimit = 1
	}
	c.DataBrowser.DevServerURL = strings.TrimRight(c.DataBrowser.DevServerURL, "/")
	return nil
}
