package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Redis        RedisConfig        `json:"redis"`
	Kafka        KafkaConfig        `json:"kafka"`
	Logger       LoggerConfig       `json:"logger"`
	InventoryAPI InventoryAPIConfig `json:"inventory_api"`
	Dashboard    DashboardConfig    `json:"dashboard"`
	Metrics      MetricsConfig      `json:"metrics"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных (только чтение истории снимков)
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Snapshots string `json:"snapshots"`
	Insights  string `json:"insights"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// InventoryAPIConfig описывает удалённый inventory API.
// Enabled=false или пустой BaseURL означают немедленный fallback на локальные данные.
type InventoryAPIConfig struct {
	BaseURL         string `json:"base_url"`
	APIKey          string `json:"api_key"`
	Enabled         bool   `json:"enabled"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
}

// DashboardConfig хранит настройки слоя гибридных данных
type DashboardConfig struct {
	AutoRefreshSeconds    int    `json:"auto_refresh_seconds"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	DefaultTimeFilter     string `json:"default_time_filter"`
	SeriesSource          string `json:"series_source"` // builtin | postgres
	DatasetFile           string `json:"dataset_file"`
}

// MetricsConfig описывает экспорт метрик Prometheus
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения
func Load() *Config {
	// .env не обязателен
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "inventory_user"),
			Password: getEnv("DB_PASSWORD", "inventory_pass"),
			DBName:   getEnv("DB_NAME", "inventory"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "inventory-dashboard"),
			Topics: Topics{
				Snapshots: getEnv("KAFKA_TOPIC_SNAPSHOTS", "inventory.snapshots"),
				Insights:  getEnv("KAFKA_TOPIC_INSIGHTS", "inventory.insights"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		InventoryAPI: InventoryAPIConfig{
			BaseURL:         getEnv("INVENTORY_API_BASE_URL", ""),
			APIKey:          getEnv("INVENTORY_API_KEY", ""),
			Enabled:         getEnvAsBool("INVENTORY_API_ENABLED", false),
			TimeoutSeconds:  getEnvAsInt("INVENTORY_API_TIMEOUT_SECONDS", 5),
			CacheTTLSeconds: getEnvAsInt("INVENTORY_API_CACHE_TTL_SECONDS", 30),
		},
		Dashboard: DashboardConfig{
			AutoRefreshSeconds:    getEnvAsInt("DASHBOARD_AUTO_REFRESH_SECONDS", 30),
			RequestTimeoutSeconds: getEnvAsInt("DASHBOARD_REQUEST_TIMEOUT_SECONDS", 10),
			DefaultTimeFilter:     getEnv("DASHBOARD_DEFAULT_TIME_FILTER", "month"),
			SeriesSource:          getEnv("SERIES_SOURCE", "builtin"),
			DatasetFile:           getEnv("DASHBOARD_DATASET_FILE", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
