// Package config provides Viper-based configuration loading for the gacha server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects which services the process runs: "all", "api", or "worker".
	Mode string `mapstructure:"mode"`
	// Env is the deployment environment: "development" or "production".
	Env string `mapstructure:"env"`
}

// RunsAPI reports whether the HTTP and gRPC surfaces are started in this mode.
func (s ServerConfig) RunsAPI() bool { return s.Mode == "all" || s.Mode == "api" }

// RunsWorkers reports whether the background schedulers are started in this mode.
func (s ServerConfig) RunsWorkers() bool { return s.Mode == "all" || s.Mode == "worker" }

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings. When Enabled is false the
// in-process cache and activity tracker are used instead.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPConfig holds the JSON API listener settings.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// GRPCConfig holds the gRPC health listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" gRPC address.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameConfig holds economy and generation tuning.
type GameConfig struct {
	// SummonCost is the coin price of a standard summon.
	SummonCost int64 `mapstructure:"summon_cost"`
	// PremiumSummonCost is the gem price of a premium summon.
	PremiumSummonCost int64 `mapstructure:"premium_summon_cost"`
	// PityThreshold is the number of consecutive sub-Rare standard summons
	// after which the next draw is forced into premium mode. 0 disables pity.
	PityThreshold int `mapstructure:"pity_threshold"`
	// ChatCoins is the coin credit per chat message.
	ChatCoins int64 `mapstructure:"chat_coins"`
	// ChatDailyCap bounds coins credited from chat per UTC day.
	ChatDailyCap int64 `mapstructure:"chat_daily_cap"`
	// ChatXP is the account experience granted per chat message.
	ChatXP int64 `mapstructure:"chat_xp"`
	// ImageBaseURL is the CDN root for character art. Empty selects the static resolver.
	ImageBaseURL string `mapstructure:"image_base_url"`
	// ImageProbeTimeout bounds each image existence probe.
	ImageProbeTimeout time.Duration `mapstructure:"image_probe_timeout"`
	// ImageResolveBudget bounds a whole image lookup across all probes.
	ImageResolveBudget time.Duration `mapstructure:"image_resolve_budget"`
	// EffectsCacheTTL is how long an aggregated effect map is cached per user.
	EffectsCacheTTL time.Duration `mapstructure:"effects_cache_ttl"`
	// ContentDir is the root containing events/ and skills/ YAML.
	ContentDir string `mapstructure:"content_dir"`
	// ScriptDir holds Lua event hooks. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps the Lua instructions of one hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// EventsConfig holds event window timings.
type EventsConfig struct {
	// OfferWindow is how long a solo offer stays open.
	OfferWindow time.Duration `mapstructure:"offer_window"`
	// GroupWindow is how long a group event collects responses before finalizing.
	GroupWindow time.Duration `mapstructure:"group_window"`
	// ActivityWindow is the rolling window of chat activity used for group invitations.
	ActivityWindow time.Duration `mapstructure:"activity_window"`
	// AutoInterval is the period between automatic group events. 0 disables them.
	AutoInterval time.Duration `mapstructure:"auto_interval"`
}

// RestoreConfig holds the passive restoration sweep settings.
type RestoreConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// AdminConfig holds administrative endpoint settings.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin token. Empty disables admin routes.
	TokenHash string `mapstructure:"token_hash"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
	Events   EventsConfig   `mapstructure:"events"`
	Restore  RestoreConfig  `mapstructure:"restore"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	validators := []func() error{
		func() error { return validateServer(c.Server) },
		func() error { return validateDatabase(c.Database) },
		func() error { return validateRedis(c.Redis) },
		func() error { return validatePort("http.port", c.HTTP.Port) },
		func() error { return validatePort("grpc.port", c.GRPC.Port) },
		func() error { return validateLogging(c.Logging) },
		func() error { return validateGame(c.Game) },
		func() error { return validateEvents(c.Events) },
		func() error { return validateRestore(c.Restore) },
	}
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	validModes := map[string]bool{"all": true, "api": true, "worker": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("server.mode must be one of [all, api, worker], got %q", s.Mode)
	}
	validEnvs := map[string]bool{"development": true, "production": true}
	if !validEnvs[s.Env] {
		return fmt.Errorf("server.env must be one of [development, production], got %q", s.Env)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if err := validatePort("database.port", d.Port); err != nil {
		errs = append(errs, err.Error())
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	if !r.Enabled {
		return nil
	}
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty when redis.enabled is true")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be 1-65535, got %d", field, port)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.SummonCost < 0 {
		errs = append(errs, fmt.Sprintf("game.summon_cost must be >= 0, got %d", g.SummonCost))
	}
	if g.PremiumSummonCost < 0 {
		errs = append(errs, fmt.Sprintf("game.premium_summon_cost must be >= 0, got %d", g.PremiumSummonCost))
	}
	if g.PityThreshold < 0 {
		errs = append(errs, fmt.Sprintf("game.pity_threshold must be >= 0, got %d", g.PityThreshold))
	}
	if g.ChatCoins < 0 || g.ChatDailyCap < 0 || g.ChatXP < 0 {
		errs = append(errs, "game.chat_coins, game.chat_daily_cap and game.chat_xp must not be negative")
	}
	if g.ImageProbeTimeout <= 0 {
		errs = append(errs, "game.image_probe_timeout must be positive")
	}
	if g.ImageResolveBudget < g.ImageProbeTimeout {
		errs = append(errs, "game.image_resolve_budget must be at least game.image_probe_timeout")
	}
	if g.EffectsCacheTTL < 0 {
		errs = append(errs, "game.effects_cache_ttl must not be negative")
	}
	if g.ContentDir == "" {
		errs = append(errs, "game.content_dir must not be empty")
	}
	if g.ScriptInstructionLimit <= 0 {
		errs = append(errs, fmt.Sprintf("game.script_instruction_limit must be > 0, got %d", g.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateEvents(e EventsConfig) error {
	var errs []string
	if e.OfferWindow <= 0 {
		errs = append(errs, "events.offer_window must be positive")
	}
	if e.GroupWindow <= 0 {
		errs = append(errs, "events.group_window must be positive")
	}
	if e.ActivityWindow <= 0 {
		errs = append(errs, "events.activity_window must be positive")
	}
	if e.AutoInterval < 0 {
		errs = append(errs, "events.auto_interval must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateRestore(r RestoreConfig) error {
	if r.Interval <= 0 {
		return fmt.Errorf("restore.interval must be positive, got %s", r.Interval)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with WAIFU_ prefix
	v.SetEnvPrefix("WAIFU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance populated with defaults only.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "all")
	v.SetDefault("server.env", "development")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "waifu")
	v.SetDefault("database.password", "waifu")
	v.SetDefault("database.name", "waifu")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.summon_cost", 100)
	v.SetDefault("game.premium_summon_cost", 10)
	v.SetDefault("game.pity_threshold", 50)
	v.SetDefault("game.chat_coins", 1)
	v.SetDefault("game.chat_daily_cap", 200)
	v.SetDefault("game.chat_xp", 5)
	v.SetDefault("game.image_base_url", "")
	v.SetDefault("game.image_probe_timeout", "2s")
	v.SetDefault("game.image_resolve_budget", "5s")
	v.SetDefault("game.effects_cache_ttl", "5m")
	v.SetDefault("game.content_dir", "content")
	v.SetDefault("game.script_dir", "")
	v.SetDefault("game.script_instruction_limit", 100000)

	v.SetDefault("events.offer_window", "60s")
	v.SetDefault("events.group_window", "60s")
	v.SetDefault("events.activity_window", "30m")
	v.SetDefault("events.auto_interval", "0s")

	v.SetDefault("restore.interval", "60s")

	v.SetDefault("admin.token_hash", "")
}
