package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_HOST", "DB_PORT", "RATE_LIMIT_DELAY", "MARKET_SYMBOLS", "QUEUE_WORKERS", "ALPHA_VANTAGE_API_KEY", "AUTO_MIGRATE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.Database.Host != DefaultDBHost || cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database = %+v, want default host and port", cfg.Database)
	}
	if cfg.MarketData.RateLimitDelay != DefaultRateLimitDelay {
		t.Errorf("RateLimitDelay = %v, want %v", cfg.MarketData.RateLimitDelay, DefaultRateLimitDelay)
	}
	if cfg.MarketData.APIKey != "demo" {
		t.Errorf("APIKey = %q, want demo", cfg.MarketData.APIKey)
	}
	wantSymbols := []string{"AAPL", "GOOGL", "MSFT", "TSLA", "SPY"}
	if !reflect.DeepEqual(cfg.MarketData.Symbols, wantSymbols) {
		t.Errorf("Symbols = %v, want %v", cfg.MarketData.Symbols, wantSymbols)
	}
	if cfg.AutoMigrate {
		t.Error("AutoMigrate should default to false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("RATE_LIMIT_DELAY", "1500")
	t.Setenv("ALPHA_VANTAGE_TIMEOUT", "3s")
	t.Setenv("MARKET_SYMBOLS", " ibm , ,nvda ")
	t.Setenv("AUTO_MIGRATE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("DB port = %d, want 6543", cfg.Database.Port)
	}
	if cfg.MarketData.RateLimitDelay != 1500*time.Millisecond {
		t.Errorf("RateLimitDelay = %v, want 1.5s", cfg.MarketData.RateLimitDelay)
	}
	if cfg.MarketData.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.MarketData.Timeout)
	}
	if !reflect.DeepEqual(cfg.MarketData.Symbols, []string{"ibm", "nvda"}) {
		t.Errorf("Symbols = %v, want [ibm nvda]", cfg.MarketData.Symbols)
	}
	if !cfg.AutoMigrate {
		t.Error("AutoMigrate should be true")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_PORT", "not-a-port"},
		{"RATE_LIMIT_DELAY", "soon"},
		{"AUTO_MIGRATE", "maybe"},
		{"QUEUE_WORKERS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q expected error", tt.key, tt.value)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(""); got != nil {
		t.Errorf("SplitList(\"\") = %v, want nil", got)
	}
	if got := SplitList("A, B,,C "); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("SplitList() = %v", got)
	}
}
