package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string

	ImageBucket    string
	RegistryBucket string

	AIAPIKey    string
	EmbedModel  string
	EmbedDim    int
	GenModel    string
	Temperature float64

	TextIndex    string
	ImageIndex   string
	SummaryIndex string

	ChunkSize                 int
	ChunkOverlap              int
	MaxConcurrentDescriptions int
	SummaryMaxSamples         int

	Port string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),

		ImageBucket:    getEnv("IMAGE_BUCKET", "rag-images"),
		RegistryBucket: getEnv("REGISTRY_BUCKET", "rag-known-files"),

		AIAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbedModel:  getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:    getEnvInt("EMBED_DIM", 1536),
		GenModel:    getEnv("GEN_MODEL", "gemini-1.5-flash"),
		Temperature: getEnvFloat("MODEL_TEMPERATURE", 0.0),

		TextIndex:    getEnv("TEXT_INDEX_NAME", "text_chunks"),
		ImageIndex:   getEnv("IMAGE_INDEX_NAME", "image_chunks"),
		SummaryIndex: getEnv("SUMMARY_INDEX_NAME", "summary_chunks"),

		ChunkSize:                 getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:              getEnvInt("CHUNK_OVERLAP", 200),
		MaxConcurrentDescriptions: getEnvInt("MAX_CONCURRENT_DESCRIPTIONS", 30),
		SummaryMaxSamples:         getEnvInt("SUMMARY_MAX_SAMPLES", 5),

		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}
