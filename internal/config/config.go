package config

import (
	"os"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Import   ImportConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration. FillsTopic carries inbound trade
// fill events; ImportTopic carries outbound import notifications.
type KafkaConfig struct {
	Brokers     []string
	FillsTopic  string
	ImportTopic string
	GroupID     string
}

// RedisConfig holds the analytics cache configuration. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr string
}

// ImportConfig holds broker import configuration. TZPolicy selects how broker
// timestamps are interpreted ("jst" or "local").
type ImportConfig struct {
	TZPolicy       string
	MigrationsPath string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fxjournal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			FillsTopic:  getEnv("KAFKA_FILLS_TOPIC", "trade-fills"),
			ImportTopic: getEnv("KAFKA_IMPORT_TOPIC", "journal-imports"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "fxjournal"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Import: ImportConfig{
			TZPolicy:       getEnv("BROKER_TZ_POLICY", "jst"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
