package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	APIBaseURL  string        `env:"API_BASE_URL"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	Session SessionConfig
	Redis   RedisConfig `envPrefix:"REDIS_"`
	Kafka   KafkaConfig `envPrefix:"KAFKA_"`
	Search  SearchConfig
	FakeAPI FakeAPIConfig
}

type SessionConfig struct {
	Store     string `env:"SESSION_STORE" envDefault:"memory"`
	DSN       string `env:"SESSION_DSN"`
	Namespace string `env:"SESSION_NAMESPACE" envDefault:"default"`
	Secret    string `env:"SESSION_SECRET"`
	Salt      string `env:"SESSION_SALT" envDefault:"food-delivery-session"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:","`
	LocationTopic string   `env:"LOCATION_TOPIC" envDefault:"shipper_location"`
	GroupID       string   `env:"GROUP_ID" envDefault:"food-delivery-client"`
}

type SearchConfig struct {
	URL             string `env:"ES_URL"`
	User            string `env:"ES_USER"`
	Password        string `env:"ES_PASSWORD"`
	RestaurantIndex string `env:"ES_RESTAURANT_INDEX" envDefault:"restaurants"`
}

type FakeAPIConfig struct {
	Addr       string        `env:"FAKEAPI_ADDR" envDefault:":8000"`
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Kafka.Brokers = CSV(strings.Join(cfg.Kafka.Brokers, ","))
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))
	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
