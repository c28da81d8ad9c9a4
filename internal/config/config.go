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
	// сервер
	Port            string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	TokenTTL        time.Duration
	TranscribeURL   string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// клиент
	APIBaseURL        string
	RealtimeURL       string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	RequestTimeout    time.Duration
	DedupMessages     bool
}

// Load читает .env.local, затем .env, затем переменные окружения
func Load() Config {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	port := getEnv("PORT", "8080")
	apiBase := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:"+port), "/")

	return Config{
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        getDuration("TOKEN_TTL", 24*time.Hour),
		TranscribeURL:   os.Getenv("TRANSCRIBE_URL"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowedOrigins:  getList("ALLOWED_ORIGINS"),

		APIBaseURL:        apiBase,
		RealtimeURL:       getEnv("REALTIME_URL", websocketURL(apiBase)),
		ReconnectAttempts: getInt("RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    getDuration("RECONNECT_DELAY", time.Second),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 15*time.Second),
		DedupMessages:     getBool("CHAT_DEDUP", false),
	}
}

// websocketURL выводит адрес /ws из базового http(s) адреса API
func websocketURL(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://") + "/ws"
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://") + "/ws"
	default:
		return apiBase + "/ws"
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// getList читает список через запятую, пустые элементы пропускаются
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
