package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SQL_CONNECTION_STRING", "")
	t.Setenv("SqlConnectionString", "")

	cfg := Load()

	if cfg.App.Port != "8080" {
		t.Errorf("App.Port = %q, want 8080", cfg.App.Port)
	}
	if cfg.DB.MaxOpenConns != 20 || cfg.DB.MinIdleConns != 5 {
		t.Errorf("pool sizing = %d/%d, want 20/5", cfg.DB.MaxOpenConns, cfg.DB.MinIdleConns)
	}
	if cfg.DB.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", cfg.DB.ConnectTimeout)
	}
	if cfg.DB.IdleTimeout != 300*time.Second {
		t.Errorf("IdleTimeout = %v, want 300s", cfg.DB.IdleTimeout)
	}
	if cfg.Generator.Interval != time.Minute {
		t.Errorf("Generator.Interval = %v, want 1m", cfg.Generator.Interval)
	}
	if cfg.DB.ConnectionString != "" {
		t.Errorf("ConnectionString = %q, want empty", cfg.DB.ConnectionString)
	}
	if cfg.Kafka.Brokers != nil {
		t.Errorf("Kafka.Brokers = %v, want nil", cfg.Kafka.Brokers)
	}
}

func TestLoadDBConnectionStringFallback(t *testing.T) {
	t.Run("primary name wins", func(t *testing.T) {
		t.Setenv("SQL_CONNECTION_STRING", "sqlite://primary.db")
		t.Setenv("SqlConnectionString", "sqlite://legacy.db")

		if got := LoadDB().ConnectionString; got != "sqlite://primary.db" {
			t.Errorf("ConnectionString = %q", got)
		}
	})

	t.Run("legacy name used when primary empty", func(t *testing.T) {
		t.Setenv("SQL_CONNECTION_STRING", "")
		t.Setenv("SqlConnectionString", " sqlite://legacy.db ")

		if got := LoadDB().ConnectionString; got != "sqlite://legacy.db" {
			t.Errorf("ConnectionString = %q", got)
		}
	})
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	t.Setenv("TEST_DUR", "250ms")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_LIST", "a:9092, b:9092,,")

	if got := getEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt() = %d, want default 7", got)
	}
	if got := getEnvAsDuration("TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("getEnvAsDuration() = %v", got)
	}
	if got := getEnvAsBool("TEST_BOOL", false); !got {
		t.Error("getEnvAsBool() = false, want true")
	}
	want := []string{"a:9092", "b:9092"}
	if got := getEnvAsList("TEST_LIST"); !reflect.DeepEqual(got, want) {
		t.Errorf("getEnvAsList() = %v, want %v", got, want)
	}
}
