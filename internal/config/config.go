// Package config provides configuration management for the mascot host
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/store"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Avatar  AvatarConfig  `mapstructure:"avatar" yaml:"avatar"`
	Color   ColorConfig   `mapstructure:"color" yaml:"color"`
	Emotion EmotionConfig `mapstructure:"emotion" yaml:"emotion"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP host
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SyncConfig configures the outbound state-sync client
type SyncConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	QueueSize int           `mapstructure:"queue_size" yaml:"queue_size"`
}

// StoreConfig configures position persistence
type StoreConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"` // sqlite, redis, memory
	Path          string `mapstructure:"path" yaml:"path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// AvatarConfig configures the engine
type AvatarConfig struct {
	DefaultX         float64       `mapstructure:"default_x" yaml:"default_x"`
	DefaultY         float64       `mapstructure:"default_y" yaml:"default_y"`
	EmotionThrottle  float64       `mapstructure:"emotion_throttle" yaml:"emotion_throttle"` // 0-1
	MessageDebounce  time.Duration `mapstructure:"message_debounce" yaml:"message_debounce"`
	ToolPollInterval time.Duration `mapstructure:"tool_poll_interval" yaml:"tool_poll_interval"`
	ToolMaxDuration  time.Duration `mapstructure:"tool_max_duration" yaml:"tool_max_duration"`
	IdleBehaviors    bool          `mapstructure:"idle_behaviors" yaml:"idle_behaviors"`
	Autonomous       bool          `mapstructure:"autonomous" yaml:"autonomous"`
}

// ColorConfig configures the ambient color cycle
type ColorConfig struct {
	Mode       string        `mapstructure:"mode" yaml:"mode"` // reactive or deterministic
	Hold       time.Duration `mapstructure:"hold" yaml:"hold"`
	Transition time.Duration `mapstructure:"transition" yaml:"transition"`
	Palette    []string      `mapstructure:"palette" yaml:"palette"` // "body,face" hex pairs
}

// EmotionConfig configures the keyword detector
type EmotionConfig struct {
	Dictionary string `mapstructure:"dictionary" yaml:"dictionary"` // YAML file; empty uses the built-in set
	Watch      bool   `mapstructure:"watch" yaml:"watch"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	dir, _ := GetConfigDir()
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Sync: SyncConfig{
			Enabled:   true,
			Endpoint:  "http://localhost:3000/api/ui/color",
			Timeout:   2 * time.Second,
			QueueSize: 64,
		},
		Store: StoreConfig{
			Backend:   store.BackendSQLite,
			Path:      filepath.Join(dir, "mascot.db"),
			RedisAddr: "localhost:6379",
		},
		Avatar: AvatarConfig{
			DefaultX:         40,
			DefaultY:         40,
			EmotionThrottle:  0.70,
			MessageDebounce:  2 * time.Second,
			ToolPollInterval: 500 * time.Millisecond,
			ToolMaxDuration:  15 * time.Second,
			IdleBehaviors:    true,
			Autonomous:       true,
		},
		Color: ColorConfig{
			Mode:       string(color.ModeReactive),
			Hold:       20 * time.Second,
			Transition: 4 * time.Second,
		},
		Emotion: EmotionConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Dir:     filepath.Join(dir, "logs"),
			Level:   "info",
			Console: true,
		},
	}
}

// Validate checks values the engine cannot recover from
func (c *Config) Validate() error {
	var errs []error
	if _, err := color.ParseMode(c.Color.Mode); err != nil {
		errs = append(errs, err)
	}
	if len(c.Color.Palette) > 0 {
		if _, err := color.ParsePalette(c.Color.Palette); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Color.Mode == string(color.ModeDeterministic) && c.Color.Hold+c.Color.Transition <= 0 {
		errs = append(errs, errors.New("color: deterministic mode needs hold or transition"))
	}
	switch c.Store.Backend {
	case store.BackendSQLite, store.BackendRedis, store.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store: unknown backend %q", c.Store.Backend))
	}
	for name, d := range map[string]time.Duration{
		"message_debounce":   c.Avatar.MessageDebounce,
		"tool_poll_interval": c.Avatar.ToolPollInterval,
		"tool_max_duration":  c.Avatar.ToolMaxDuration,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("avatar: %s must be positive, got %v", name, d))
		}
	}
	if c.Avatar.EmotionThrottle < 0 || c.Avatar.EmotionThrottle > 1 {
		errs = append(errs, fmt.Errorf("avatar: emotion_throttle %v outside [0,1]", c.Avatar.EmotionThrottle))
	}
	return errors.Join(errs...)
}

// Palette returns the configured palette, or the built-in one
func (c *Config) Palette() (color.Palette, error) {
	if len(c.Color.Palette) == 0 {
		return color.DefaultPalette(), nil
	}
	return color.ParsePalette(c.Color.Palette)
}

// StoreOptions converts the store section for store.Open
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
	}
}

// Load reads configuration from path, or from the default locations when path
// is empty, then applies CORTEXMASCOT_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CORTEXMASCOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v, cfg); err != nil {
		return cfg, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach nested
// fields that the file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for section, values := range tree {
		fields, ok := values.(map[string]any)
		if !ok {
			v.SetDefault(section, values)
			continue
		}
		for k, val := range fields {
			v.SetDefault(section+"."+k, val)
		}
	}
	return nil
}

// Save writes the configuration as YAML to path, or to the default location
func Save(cfg *Config, path string) error {
	if path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexmascot"), nil
}
