package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

type Config struct {
	Env   string
	Store StoreConfig
	Redis RedisConfig
	Queue QueueConfig
	Log   LogConfig
	Kafka KafkaConfig
}

type StoreConfig struct {
	Backend string
	DataDir string
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type QueueConfig struct {
	// Default reinsertion position for a put-back participant when the
	// caller gives none.
	PutbackDefaultPos int
	// Leading characters pruned from a custom put-back note, on top of
	// whitespace. Empty means whitespace only.
	PutbackTrimCutset string
}

type KafkaConfig struct {
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
	Enabled              bool
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", StoreBackendFile),
			DataDir: getEnv("STORE_DATA_DIR", "data/queues"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Queue: QueueConfig{
			PutbackDefaultPos: getEnvAsInt("QUEUE_PUTBACK_DEFAULT_POS", 10),
			PutbackTrimCutset: getEnv("QUEUE_PUTBACK_TRIM_CUTSET", ""),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Kafka: KafkaConfig{
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
			Enabled:              getEnvAsBool("KAFKA_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.DataDir == "" {
			return fmt.Errorf("store data dir is required for the file backend")
		}
	case StoreBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Queue.PutbackDefaultPos < 0 {
		return fmt.Errorf("invalid putback default position: %d", c.Queue.PutbackDefaultPos)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
