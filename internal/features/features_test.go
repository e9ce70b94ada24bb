package features

import (
	"testing"

	"github.com/kosavsech/SchoolDiary-sub000/internal/config"
)

func TestListAllSorted(t *testing.T) {
	all := ListAll()
	if len(all) != 3 {
		t.Fatalf("features = %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Errorf("not sorted: %s before %s", all[i-1].Name, all[i].Name)
		}
	}
	if !IsKnownFeature(" Event_Stream ") || IsKnownFeature("sync_cli") {
		t.Error("IsKnownFeature mismatch")
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfg := &config.Config{Features: map[string]bool{"event_stream": true, "performance_sync": false}}

	if got, src := Resolve(nil, EventStream.Name); got || src != "default" {
		t.Errorf("default = %v (%s)", got, src)
	}
	if got, src := Resolve(cfg, EventStream.Name); !got || src != "config" {
		t.Errorf("config = %v (%s)", got, src)
	}
	if IsEnabled(cfg, PerformanceSync.Name) {
		t.Error("config should disable performance_sync")
	}

	t.Setenv("DIARY_FEATURE_EVENT_STREAM", "off")
	if got, src := Resolve(cfg, EventStream.Name); got || src != "env" {
		t.Errorf("env = %v (%s)", got, src)
	}
}

func TestEnvLists(t *testing.T) {
	t.Setenv("DIARY_ENABLE_FEATURES", "event_stream, webhook_notifications")
	if !IsEnabled(nil, EventStream.Name) {
		t.Error("enable list ignored")
	}

	t.Setenv("DIARY_DISABLE_FEATURES", "webhook_notifications")
	if IsEnabled(nil, WebhookNotifications.Name) {
		t.Error("disable list should win over enable list")
	}

	t.Setenv("DIARY_DISABLE_EXPERIMENTAL", "1")
	if IsEnabled(nil, PerformanceSync.Name) {
		t.Error("kill switch ignored")
	}
}

func TestEnvFeatureValues(t *testing.T) {
	tests := []struct {
		value  string
		want   bool
		source string
	}{
		{"yes", true, "env"},
		{" ON ", true, "env"},
		{"0", false, "env"},
		{"No", false, "env"},
		{"maybe", false, "default"},
		{"", false, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("DIARY_FEATURE_EVENT_STREAM", tt.value)
			if got, src := Resolve(nil, EventStream.Name); got != tt.want || src != tt.source {
				t.Errorf("Resolve = %v (%s), want %v (%s)", got, src, tt.want, tt.source)
			}
		})
	}
}

func TestEnvKillSwitchOnlyDisables(t *testing.T) {
	t.Setenv("DIARY_DISABLE_EXPERIMENTAL", "false")
	t.Setenv("DIARY_ENABLE_FEATURES", " EVENT_STREAM ")
	if got, src := Resolve(nil, EventStream.Name); !got || src != "env" {
		t.Errorf("Resolve = %v (%s), want enabled from env list", got, src)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"event_stream":  "EVENT_STREAM",
		"webhook-v2":    "WEBHOOK_V2",
		"performance.x": "PERFORMANCE_X",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnknownFeature(t *testing.T) {
	t.Setenv("DIARY_ENABLE_FEATURES", "")
	if got, src := Resolve(nil, "nope"); got || src != "default" {
		t.Errorf("Resolve(nope) = %v (%s)", got, src)
	}
}
