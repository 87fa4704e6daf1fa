package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port            string
	AllowedOrigin   string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	AuthSecret      string
	TokenTTLDays    int
	GeminiAPIKey    string
	GeminiModel     string
	StatsTTLSeconds int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("TOKEN_TTL_DAYS", "30"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 30
	}
	statsTTL, err := strconv.Atoi(getEnv("STATS_TTL_SECONDS", "30"))
	if err != nil || statsTTL < 1 {
		statsTTL = 30
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		AuthSecret:      strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		TokenTTLDays:    tokenTTL,
		GeminiAPIKey:    strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		StatsTTLSeconds: statsTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
