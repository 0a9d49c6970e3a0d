package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// Authority endpoints and taxpayer identity.
	LoginURL string
	WSFEURL  string
	CUIT     int64
	CertPath string
	KeyPath  string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN string
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Production authority endpoints; override with the homologation URLs for
// testing against the authority's sandbox.
const (
	defaultLoginURL = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	defaultWSFEURL  = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
)

func FromEnv() Config {
	cuit, _ := strconv.ParseInt(os.Getenv("FISCAL_CUIT"), 10, 64)

	cfg := Config{
		Addr:          envOr("FISCAL_ADDR", ":8080"),
		JWTSigningKey: envOr("FISCAL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LoginURL:      envOr("FISCAL_LOGIN_URL", defaultLoginURL),
		WSFEURL:       envOr("FISCAL_WSFE_URL", defaultWSFEURL),
		CUIT:          cuit,
		CertPath:      os.Getenv("FISCAL_CERT_PATH"),
		KeyPath:       os.Getenv("FISCAL_KEY_PATH"),
		Redis: RedisConfig{
			URL:          os.Getenv("FISCAL_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{DSN: os.Getenv("FISCAL_POSTGRES_DSN")},
		Kafka: KafkaConfig{
			AuditTopic: envOr("FISCAL_AUDIT_TOPIC", "fiscal.audit"),
		},
	}
	if brokers := os.Getenv("FISCAL_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
