package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Shaytris/Obsidian/pkg/log"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	WebSocket WebSocketConfig
	History   HistoryConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type APIConfig struct {
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type HistoryConfig struct {
	MaxLength int `mapstructure:"max_length"` // 0 keeps the log unbounded
}

type DatabaseConfig struct {
	Enabled  bool
	Driver   string // sqlite, mysql, postgres
	Host     string
	Port     int
	User     string
	Password string
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	FilePath string `mapstructure:"file_path"` // sqlite only
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	RegistryPrefix    string        `mapstructure:"registry_prefix"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

// Load reads configuration from ./config/config.yaml (if present) and
// the environment, applying defaults for everything else.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("api.port", 8081)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("history.max_length", 0)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "obsidian.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.registry_prefix", "obsidian:registry")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service", "obsidian")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("api.port", "API_PORT")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.file_path", "DATABASE_FILE_PATH")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
