package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "nudge"

// Reminder policies
const (
	PolicyRepeat = "repeat"
	PolicyOnce   = "once"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Reminders     RemindersConfig     `yaml:"reminders" mapstructure:"reminders"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`
	Key       string `yaml:"key" mapstructure:"key"`
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" mapstructure:"redis_db"`
}

type RemindersConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds" mapstructure:"interval_seconds"`
	Policy          string `yaml:"policy" mapstructure:"policy"`
}

// Interval returns the evaluator period
func (r RemindersConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

type NotificationsConfig struct {
	Desktop bool    `yaml:"desktop" mapstructure:"desktop"`
	Sound   bool    `yaml:"sound" mapstructure:"sound"`
	Volume  float64 `yaml:"volume" mapstructure:"volume"` // log2 gain, 0 is unchanged
}

type LogConfig struct {
	File string `yaml:"file" mapstructure:"file"` // empty means <data dir>/nudge.log
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			Key:       "tasks",
			RedisAddr: "localhost:6379",
		},
		Reminders: RemindersConfig{
			IntervalSeconds: 60,
			Policy:          PolicyOnce,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
			Sound:   true,
			Volume:  -1,
		},
	}
}

// Validate checks enumerated and numeric settings
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("config: storage.key must not be empty")
	}
	switch c.Reminders.Policy {
	case PolicyRepeat, PolicyOnce:
	default:
		return fmt.Errorf("config: unknown reminders.policy %q", c.Reminders.Policy)
	}
	if c.Reminders.IntervalSeconds <= 0 {
		return fmt.Errorf("config: reminders.interval_seconds must be positive, got %d", c.Reminders.IntervalSeconds)
	}
	return nil
}

// Load reads the config file at path, writing defaults there first if it does
// not exist. NUDGE_* environment variables (and a .env file in the working
// directory) override file values, e.g. NUDGE_REMINDERS_POLICY=repeat.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_db", d.Storage.RedisDB)
	v.SetDefault("reminders.interval_seconds", d.Reminders.IntervalSeconds)
	v.SetDefault("reminders.policy", d.Reminders.Policy)
	v.SetDefault("notifications.desktop", d.Notifications.Desktop)
	v.SetDefault("notifications.sound", d.Notifications.Sound)
	v.SetDefault("notifications.volume", d.Notifications.Volume)
	v.SetDefault("log.file", d.Log.File)
}

// Save writes cfg as YAML to path, creating parent directories
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultPath returns $XDG_CONFIG_HOME/nudge/config.yaml or ~/.config/nudge/config.yaml
func DefaultPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, appName, "config.yaml"), nil
}

// DataDir returns the directory holding the database and log file, creating it
// if needed. Uses XDG data directory or falls back to ~/.local/share.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	appDir := filepath.Join(dataDir, appName)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}
	return appDir, nil
}

// LogPath returns the configured log file or the default inside dataDir
func (c *Config) LogPath(dataDir string) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(dataDir, appName+".log")
}
