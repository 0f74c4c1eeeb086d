package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 应用配置
type Config struct {
	Env         string
	DatabaseURL string
	Port        string

	// Ollama embedding 模型
	OllamaHost  string
	OllamaModel string

	// OpenRouter 生成模型
	OpenRouterKey   string
	OpenRouterModel string
	ChatMaxTokens   int
	ChatTemperature float64

	// TMDB 导入
	TMDBToken string
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinerag")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	maxTokens, _ := strconv.Atoi(getEnv("CHAT_MAX_TOKENS", "300"))
	temperature, _ := strconv.ParseFloat(getEnv("CHAT_TEMPERATURE", "0.7"), 64)

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: dbURL,
		Port:        getEnv("PORT", "8000"),

		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "all-minilm:l6-v2"),

		OpenRouterKey:   getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel: getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat-v3.1:free"),
		ChatMaxTokens:   maxTokens,
		ChatTemperature: temperature,

		TMDBToken: getEnv("TMDB_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
