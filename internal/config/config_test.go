package config

import (
	"os"
	"testing"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "123")
	t.Setenv("TEST_BOOL_TRUE", "yes")
	t.Setenv("TEST_BOOL_FALSE", "0")
	t.Setenv("TEST_BOOL_BAD", "maybe")

	if v := getEnv("TEST_STR", ""); v != "value" {
		t.Fatalf("expected value, got %s", v)
	}
	if v := getEnvAsInt("TEST_INT", 0); v != 123 {
		t.Fatalf("expected 123, got %d", v)
	}
	if v := getEnvAsInt("TEST_STR", 7); v != 7 {
		t.Fatalf("expected fallback 7, got %d", v)
	}
	if !getEnvAsBool("TEST_BOOL_TRUE", false) {
		t.Fatalf("expected true")
	}
	if getEnvAsBool("TEST_BOOL_FALSE", true) {
		t.Fatalf("expected false")
	}
	if !getEnvAsBool("TEST_BOOL_BAD", true) {
		t.Fatalf("expected default for unparsable bool")
	}
}

func TestLoadDefaults(t *testing.T) {
	// ensure no interfering env vars
	_ = os.Unsetenv("SERVER_PORT")
	_ = os.Unsetenv("INVENTORY_API_ENABLED")
	cfg := Load()
	if cfg.Server.Port == "" {
		t.Fatalf("expected default server port set")
	}
	if cfg.InventoryAPI.Enabled {
		t.Fatalf("expected inventory api disabled by default")
	}
	if cfg.Dashboard.DefaultTimeFilter != "month" {
		t.Fatalf("expected month default, got %s", cfg.Dashboard.DefaultTimeFilter)
	}
	if cfg.Dashboard.SeriesSource != "builtin" {
		t.Fatalf("expected builtin series source, got %s", cfg.Dashboard.SeriesSource)
	}
}

func TestLoadInventoryAPIFromEnv(t *testing.T) {
	t.Setenv("INVENTORY_API_BASE_URL", "http://inventory.local")
	t.Setenv("INVENTORY_API_KEY", "secret")
	t.Setenv("INVENTORY_API_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	if !cfg.InventoryAPI.Enabled || cfg.InventoryAPI.BaseURL != "http://inventory.local" || cfg.InventoryAPI.APIKey != "secret" {
		t.Fatalf("unexpected inventory api config: %+v", cfg.InventoryAPI)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
}
