// Package config loads engine configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/markb/pgfngen/internal/log"
	"github.com/markb/pgfngen/internal/model"
	"github.com/markb/pgfngen/internal/render"
)

// EnvPrefix prefixes every environment variable the engine reads.
const EnvPrefix = "PGFNGEN_"

// DefaultPrincipal owns and executes every generated function unless
// PGFNGEN_PRINCIPAL says otherwise.
const DefaultPrincipal = "postgres"

// Config represents the engine configuration.
type Config struct {
	// Principal is the owner and grantee of every generated function. It
	// is engine configuration, not a per-request option.
	Principal string `env:"PRINCIPAL" envDefault:"postgres"`

	// Audit user lookup.
	UserTable string `env:"USER_TABLE"       envDefault:"public.users"`
	UserKey   string `env:"USER_KEY"         envDefault:"id"`
	UserName  string `env:"USER_NAME_COLUMN" envDefault:"user_name"`

	Limits Limits     `envPrefix:"MAX_"`
	Log    log.Config `envPrefix:"LOG_"`
}

// Limits bounds the size of a single generation request.
type Limits struct {
	Columns       int `env:"COLUMNS"        envDefault:"256"`
	Params        int `env:"PARAMS"         envDefault:"32"`
	DetailColumns int `env:"DETAIL_COLUMNS" envDefault:"128"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads configuration from the given variables instead of the
// process environment. Keys include the prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: vars})
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	required := map[string]string{
		"principal":        c.Principal,
		"user table":       c.UserTable,
		"user key":         c.UserKey,
		"user name column": c.UserName,
	}
	for _, name := range []string{"principal", "user table", "user key", "user name column"} {
		if strings.TrimSpace(required[name]) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	if c.Limits.Columns < 1 || c.Limits.Params < 0 || c.Limits.DetailColumns < 1 {
		return fmt.Errorf("limits must be positive (columns=%d params=%d detail_columns=%d)",
			c.Limits.Columns, c.Limits.Params, c.Limits.DetailColumns)
	}

	if !log.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}
	return nil
}

// RenderSettings returns the rendering configuration.
func (c *Config) RenderSettings() render.Settings {
	return render.Settings{
		Principal: c.Principal,
		UserTable: model.ParseQualifiedName(c.UserTable),
		UserKey:   c.UserKey,
		UserName:  c.UserName,
	}
}
