package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process configuration resolved from the environment.
// Gateway credentials are not part of it: they live in the gateway_settings
// table and are resolved per request.
type Config struct {
	Port            int
	DBPath          string
	RedisAddr       string
	RedisPassword   string
	CartDir         string
	CartTTL         time.Duration
	GatewayTimeout  time.Duration
	PixExpiration   time.Duration
	PublicBaseURL   string
	CORSOrigins     []string
	LogLevel        string
	OTLPEndpoint    string
	ServiceName     string
	ShutdownTimeout time.Duration

	// Somente usados pelo seed para popular gateway_settings.
	PagarmeAPIKey  string
	PagarmeBaseURL string
	PixAPIKey      string
	PixAPIBaseURL  string
}

func Load() *Config {
	return &Config{
		Port:            getInt("PORT", 8080),
		DBPath:          getEnv("DB_PATH", "./data/cardapio.db"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CartDir:         getEnv("CART_DIR", "./data/carts"),
		CartTTL:         getDuration("CART_TTL", 72*time.Hour),
		GatewayTimeout:  getDuration("GATEWAY_TIMEOUT", 5*time.Second),
		PixExpiration:   getDuration("PIX_EXPIRATION", 5*time.Minute),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:     getEnv("SERVICE_NAME", "cardapio-api"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		PagarmeAPIKey:  getEnv("PAGARME_API_KEY", ""),
		PagarmeBaseURL: getEnv("PAGARME_BASE_URL", "https://api.pagar.me/core/v5"),
		PixAPIKey:      getEnv("PIXAPI_API_KEY", ""),
		PixAPIBaseURL:  getEnv("PIXAPI_BASE_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
