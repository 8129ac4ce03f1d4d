package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
	}
	DB  DBConfig
	Log struct {
		Level  string
		Format string
	}
	Redis struct {
		Enabled   bool
		Host      string
		Port      string
		Password  string
		DB        int
		LatestTTL time.Duration
	}
	Generator struct {
		Enabled  bool
		Interval time.Duration
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	MQTT struct {
		Broker   string
		ClientID string
		Topic    string
	}
	Export struct {
		OutputDir string
	}
}

// DBConfig holds everything the pool manager needs. It is loaded separately
// from Load so the connection string can be read when the pool is first built.
type DBConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MinIdleConns     int
	ConnectTimeout   time.Duration
	IdleTimeout      time.Duration
	AutoMigrate      bool
	LogLevel         string
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	cfg.DB = LoadDB()

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
	cfg.Redis.LatestTTL = getEnvAsDuration("REDIS_LATEST_TTL", 10*time.Minute)

	// Generator
	cfg.Generator.Enabled = getEnvAsBool("GENERATOR_ENABLED", true)
	cfg.Generator.Interval = getEnvAsDuration("GENERATOR_INTERVAL", time.Minute)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	// Fan-out
	cfg.Kafka.Brokers = getEnvAsList("KAFKA_BROKERS")
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "sensor-readings")
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sensorgrid")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "sensorgrid/readings")

	cfg.Export.OutputDir = getEnv("EXPORT_DIR", "./data/exports")

	return cfg
}

// LoadDB reads the database section of the environment. The connection
// string may be empty; the pool manager reports that on first use.
func LoadDB() DBConfig {
	conn := os.Getenv("SQL_CONNECTION_STRING")
	if conn == "" {
		conn = os.Getenv("SqlConnectionString")
	}

	return DBConfig{
		ConnectionString: strings.TrimSpace(conn),
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
		MinIdleConns:     getEnvAsInt("DB_MIN_IDLE_CONNS", 5),
		ConnectTimeout:   getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		IdleTimeout:      getEnvAsDuration("DB_IDLE_TIMEOUT", 300*time.Second),
		AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", false),
		LogLevel:         getEnv("DB_LOG_LEVEL", "warn"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
