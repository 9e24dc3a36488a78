package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Empty connection URLs select
// the in-memory implementations so the binary runs without infrastructure.
type Server struct {
	HTTP              HTTPConfig
	DatabaseURL       string
	RegistrationToken string
	KeyManifest       string
	TxTimeout         time.Duration
	Redis             RedisConfig
	Kafka             KafkaConfig
	Verifier          VerifierConfig
	Feeds             FeedsConfig
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// RedisConfig configures the namespace read-through cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures publication of item events.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	Partitions int32
	Replicas   int16
}

// VerifierConfig controls envelope time validation. ClockTrust "none" means
// the process has no trusted clock and exp/nbf/iat are not checked.
type VerifierConfig struct {
	ClockTrust string
	Leeway     time.Duration
}

// FeedsConfig selects the storage variant for accepted items.
type FeedsConfig struct {
	StoreEnvelope bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		HTTP: HTTPConfig{
			Addr:              getString("FEEDLOG_ADDR", ":8080"),
			ReadHeaderTimeout: getDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getDuration("HTTP_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout:   getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RegistrationToken: os.Getenv("REGISTRATION_TOKEN"),
		KeyManifest:       os.Getenv("KEY_MANIFEST"),
		TxTimeout:         getDuration("TX_TIMEOUT", 5*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getDuration("NAMESPACE_CACHE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:      getString("KAFKA_TOPIC", "feedlog.items"),
			Partitions: int32(getInt("KAFKA_PARTITIONS", 3)),
			Replicas:   int16(getInt("KAFKA_REPLICAS", 1)),
		},
		Verifier: VerifierConfig{
			ClockTrust: getString("CLOCK_TRUST", "none"),
			Leeway:     getDuration("CLOCK_LEEWAY", 0),
		},
		Feeds: FeedsConfig{
			StoreEnvelope: os.Getenv("FEED_STORE_ENVELOPE") == "true",
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
