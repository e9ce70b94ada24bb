// Package config loads diary settings from defaults, an optional YAML file,
// an optional .env file and DIARY_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "DIARY"

// Config holds the resolved settings.
type Config struct {
	PortalURL    string
	DataDir      string
	DBDriver     string
	FetchTimeout time.Duration

	UpcomingDays     int
	TaskTitleMaxLen  int
	BuildVersionCode int
	VersionURL       string

	NotificationsEnabled bool
	WebhookURL           string
	WebhookSecret        string

	// Intervals overrides periodic job intervals by job name
	Intervals map[string]time.Duration

	EventStreamAddr string

	LogLevel  string // "debug", "info" (default), "warn", "error"
	LogFormat string // "text" (default) or "json"
	LogFile   string // rotate logs into this file instead of stderr

	// Features holds feature flag values set in the config file
	Features map[string]bool

	// File is the config file that was read, if any
	File string
}

// DefaultDataDir returns ~/.config/diary
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diary"
	}
	return filepath.Join(home, ".config", "diary")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal_url", "https://school.example.ru")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("upcoming_days", 7)
	v.SetDefault("task_title_max_len", 20)
	v.SetDefault("build_version_code", 0)
	v.SetDefault("version_url", "")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("event_stream_addr", "127.0.0.1:7433")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
}

// Load resolves the configuration. An explicit path must exist; without
// one, config.yaml in the data dir is read when present. A .env file in the
// working directory is loaded first and never overrides real environment
// variables.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		PortalURL:            strings.TrimRight(v.GetString("portal_url"), "/"),
		DataDir:              v.GetString("data_dir"),
		DBDriver:             v.GetString("db_driver"),
		FetchTimeout:         v.GetDuration("fetch_timeout"),
		UpcomingDays:         v.GetInt("upcoming_days"),
		TaskTitleMaxLen:      v.GetInt("task_title_max_len"),
		BuildVersionCode:     v.GetInt("build_version_code"),
		VersionURL:           v.GetString("version_url"),
		NotificationsEnabled: v.GetBool("notifications.enabled"),
		WebhookURL:           v.GetString("webhook.url"),
		WebhookSecret:        v.GetString("webhook.secret"),
		EventStreamAddr:      v.GetString("event_stream_addr"),
		LogLevel:             strings.ToLower(v.GetString("log_level")),
		LogFormat:            strings.ToLower(v.GetString("log_format")),
		LogFile:              v.GetString("log_file"),
		Intervals:            make(map[string]time.Duration),
		Features:             make(map[string]bool),
		File:                 v.ConfigFileUsed(),
	}
	for _, job := range []string{"subjects", "grades", "schedule", "tasks", "performance"} {
		key := "intervals." + job
		if v.IsSet(key) {
			cfg.Intervals[job] = v.GetDuration(key)
		}
	}
	for name := range v.GetStringMap("features") {
		cfg.Features[strings.ToLower(name)] = v.GetBool("features." + name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	u, err := url.Parse(c.PortalURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: portal_url %q is not an absolute URL", c.PortalURL)
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.UpcomingDays < 1 || c.UpcomingDays > 31 {
		return fmt.Errorf("config: upcoming_days must be 1..31, got %d", c.UpcomingDays)
	}
	if c.TaskTitleMaxLen < 1 {
		return fmt.Errorf("config: task_title_max_len must be positive, got %d", c.TaskTitleMaxLen)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	for job, every := range c.Intervals {
		if every < 15*time.Minute {
			return fmt.Errorf("config: intervals.%s must be at least 15m, got %s", job, every)
		}
	}
	return nil
}

// PortalHost returns host:port of the portal, for connectivity checks.
func (c *Config) PortalHost() string {
	u, err := url.Parse(c.PortalURL)
	if err != nil {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "http" {
		return u.Hostname() + ":80"
	}
	return u.Hostname() + ":443"
}

func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
