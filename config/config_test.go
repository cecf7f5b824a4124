package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultsUnmarshalIntoConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.MinRefundStars != 3 {
		t.Fatalf("MinRefundStars = %d, want 3", cfg.MinRefundStars)
	}
	if cfg.DeclineWindow != 168*time.Hour {
		t.Fatalf("DeclineWindow = %v, want 168h", cfg.DeclineWindow)
	}
	if cfg.SettingsCacheTTL != 30*time.Second {
		t.Fatalf("SettingsCacheTTL = %v, want 30s", cfg.SettingsCacheTTL)
	}
	if cfg.StoreDriver != "mongo" || cfg.DatabaseName != "installhub" {
		t.Fatalf("unexpected storage defaults %q/%q", cfg.StoreDriver, cfg.DatabaseName)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("DECLINE_THRESHOLD", "7")
	t.Setenv("STORE_DRIVER", "memory")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.DeclineThreshold != 7 {
		t.Fatalf("DeclineThreshold = %d, want 7", cfg.DeclineThreshold)
	}
	if cfg.StoreDriver != "memory" {
		t.Fatalf("StoreDriver = %q", cfg.StoreDriver)
	}
}
