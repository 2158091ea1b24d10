package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	SessionCookieSecure    bool
	CSRFEnabled            bool
	AllowedOrigins         []string

	QRSigningSecret []byte
	QRMerchantName  string
	QRCurrency      string
	QRTTL           time.Duration

	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ESURL       string
	ESUser      string
	ESPassword  string
	ESMenuIndex string

	LoginRateLimit  string
	PublicRateLimit string

	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

// Load reads the environment, optionally seeded from the given .env files.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		log.Printf("notice: .env not loaded (%v), using process environment", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "chopchop-pos"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionTTL:             EnvDurationDefault("SESSION_TTL", 8*time.Hour),
		SessionCleanupInterval: EnvDurationDefault("SESSION_CLEANUP_INTERVAL", 15*time.Minute),
		SessionCookieSecure:    EnvBoolDefault("SESSION_COOKIE_SECURE", false),
		CSRFEnabled:            EnvBoolDefault("CSRF_ENABLED", false),
		AllowedOrigins:         CSV(os.Getenv("ALLOWED_ORIGINS")),

		QRSigningSecret: []byte(os.Getenv("QR_SIGNING_SECRET")),
		QRMerchantName:  EnvDefault("QR_MERCHANT_NAME", "ChopChop Restaurant"),
		QRCurrency:      EnvDefault("QR_CURRENCY", "IDR"),
		QRTTL:           EnvDurationDefault("QR_TTL", 15*time.Minute),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),

		ESURL:       os.Getenv("ES_URL"),
		ESUser:      os.Getenv("ES_USER"),
		ESPassword:  os.Getenv("ES_PASSWORD"),
		ESMenuIndex: EnvDefault("ES_MENU_INDEX", "menus"),

		LoginRateLimit:  EnvDefault("LOGIN_RATE_LIMIT", "10-M"),
		PublicRateLimit: EnvDefault("PUBLIC_RATE_LIMIT", "60-M"),

		BootstrapAdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
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

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
