// Package features resolves named feature flags.
//
// A flag is looked up in the environment first, then in the config file's
// features map, then falls back to its registered default.
package features

import (
	"os"
	"slices"
	"strings"

	"github.com/kosavsech/SchoolDiary-sub000/internal/config"
)

const envPrefix = config.EnvPrefix + "_"

// Feature describes a named feature flag.
type Feature struct {
	Name        string
	Default     bool
	Description string
}

var (
	// PerformanceSync gates the term marks job.
	PerformanceSync = Feature{
		Name:        "performance_sync",
		Default:     true,
		Description: "Sync final term marks from the performance pages",
	}

	// EventStream gates the websocket event stream in the daemon.
	EventStream = Feature{
		Name:        "event_stream",
		Default:     false,
		Description: "Serve sync events over a websocket",
	}

	// WebhookNotifications gates delivery of notifications to webhook.url.
	WebhookNotifications = Feature{
		Name:        "webhook_notifications",
		Default:     true,
		Description: "Deliver notifications to the configured webhook",
	}
)

// registry is kept sorted by name.
var registry = []Feature{EventStream, PerformanceSync, WebhookNotifications}

// ListAll returns all known features sorted by name.
func ListAll() []Feature {
	return slices.Clone(registry)
}

func lookup(name string) (Feature, bool) {
	i := slices.IndexFunc(registry, func(f Feature) bool { return f.Name == name })
	if i < 0 {
		return Feature{}, false
	}
	return registry[i], true
}

// IsKnownFeature reports whether name is registered.
func IsKnownFeature(name string) bool {
	_, ok := lookup(canonical(name))
	return ok
}

// IsEnabled resolves a feature using env overrides, then config, then defaults.
func IsEnabled(cfg *config.Config, name string) bool {
	enabled, _ := Resolve(cfg, name)
	return enabled
}

// Resolve returns the resolved state and where it came from: "env",
// "config" or "default". Unknown names resolve to false.
func Resolve(cfg *config.Config, name string) (bool, string) {
	name = canonical(name)
	if enabled, ok := envOverride(name); ok {
		return enabled, "env"
	}
	if cfg != nil {
		if enabled, ok := cfg.Features[name]; ok {
			return enabled, "config"
		}
	}
	f, _ := lookup(name)
	return f.Default, "default"
}

var envBools = map[string]bool{
	"1": true, "true": true, "on": true, "yes": true,
	"0": false, "false": false, "off": false, "no": false,
}

// envOverride checks, in order: the experimental kill switch,
// DIARY_FEATURE_<NAME>, then the comma separated disable and enable lists.
func envOverride(name string) (enabled, ok bool) {
	if name == "" {
		return false, false
	}
	boolEnv := func(key string) (bool, bool) {
		v, set := envBools[canonical(os.Getenv(envPrefix+key))]
		return v, set
	}
	listed := func(key string) bool {
		return slices.ContainsFunc(strings.Split(os.Getenv(envPrefix+key), ","), func(item string) bool {
			return canonical(item) == name
		})
	}

	if off, set := boolEnv("DISABLE_EXPERIMENTAL"); set && off {
		return false, true
	}
	if v, set := boolEnv("FEATURE_" + envKey(name)); set {
		return v, true
	}
	switch {
	case listed("DISABLE_FEATURES"):
		return false, true
	case listed("ENABLE_FEATURES"):
		return true, true
	}
	return false, false
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// envKey upper-cases name and maps anything outside [A-Z0-9] to '_'.
func envKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}
