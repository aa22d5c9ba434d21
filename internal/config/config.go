package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"drowsiness-detector-go/internal/database"
	"drowsiness-detector-go/internal/detector"

	"github.com/joho/godotenv"
)

// Драйверы хранилища. memory работает на SQLite в памяти процесса.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Detection параметры детекции по умолчанию для новых сессий
type Detection struct {
	EarThreshold         float64
	ConsecutiveFrames    int
	AlertCooldownSeconds float64
	MinEarValid          float64
	HistorySize          int
}

// ToDetector преобразует параметры в конфигурацию движка
func (d Detection) ToDetector() detector.Config {
	return detector.Config{
		EarThreshold:              d.EarThreshold,
		ConsecutiveFramesRequired: d.ConsecutiveFrames,
		AlertCooldown:             time.Duration(d.AlertCooldownSeconds * float64(time.Second)),
		MinEarValid:               d.MinEarValid,
		HistoryCapacity:           d.HistorySize,
	}
}

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	GRPC struct {
		Port int
	}
	LandmarkAPI struct {
		BaseURL string
		Timeout int // в секундах
	}
	Logging struct {
		Level string
	}
	Storage struct {
		Driver     string
		SQLitePath string
	}
	Database  database.Config
	Detection Detection
	Kafka     struct {
		Brokers    []string
		AlertTopic string
	}
}

// IsProduction true для боевого окружения
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// LandmarkTimeout таймаут запросов к сервису разметки
func (c *Config) LandmarkTimeout() time.Duration {
	return time.Duration(c.LandmarkAPI.Timeout) * time.Second
}

// LoadConfig загружает конфигурацию из .env файла и переменных окружения
func LoadConfig() *Config {
	// .env необязателен, без него используются переменные окружения системы
	_ = godotenv.Load()

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")
	cfg.GRPC.Port = getEnvInt("GRPC_PORT", 50051)

	// Конфигурация сервиса разметки лица
	cfg.LandmarkAPI.BaseURL = getEnv("LANDMARK_API_BASE_URL", "http://localhost:8000")
	cfg.LandmarkAPI.Timeout = getEnvInt("LANDMARK_API_TIMEOUT_SECONDS", 30)

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	// Хранилище
	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres))
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", "drowsiness.db")
	cfg.Database = database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_NAME", "drowsiness_detector"),
		Username: getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "password"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Параметры детекции
	defaults := detector.DefaultConfig()
	cfg.Detection = Detection{
		EarThreshold:         getEnvFloat("EAR_THRESHOLD", defaults.EarThreshold),
		ConsecutiveFrames:    getEnvInt("CONSECUTIVE_FRAMES", defaults.ConsecutiveFramesRequired),
		AlertCooldownSeconds: getEnvFloat("ALERT_COOLDOWN_SECONDS", defaults.AlertCooldown.Seconds()),
		MinEarValid:          getEnvFloat("MIN_EAR_VALID", defaults.MinEarValid),
		HistorySize:          getEnvInt("EAR_HISTORY_SIZE", defaults.HistoryCapacity),
	}

	// Kafka выключена, если брокеры не заданы
	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS")
	cfg.Kafka.AlertTopic = getEnv("KAFKA_ALERT_TOPIC", "drowsiness.alerts")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList разбирает список через запятую, пустые элементы пропускаются
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
