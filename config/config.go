package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	LogLevel    string
	Environment string

	DatabaseURL string
	RedisURL    string
	MongoURI    string
	MongoDB     string
	// AnalysisStore selects the persistent backend: "postgres" or "mongo".
	AnalysisStore string
	CacheTTL      time.Duration

	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	VertexProject  string
	VertexLocation string
	VertexModel    string

	HamsaAPIKey    string
	HamsaBaseURL   string
	HamsaProjectID string

	ChatKitWorkflowID string
	ChatKitBaseURL    string
	ChatKitDemoUser   string

	GCSBucket string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	SentryDSN string

	AnalysisCoalesce bool
	AnalysisWorkers  int
}

// Load reads the process environment. Call godotenv.Load first to pick up a .env file.
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL:   firstEnv("DATABASE_URL", "POSTGRES_URI"),
		RedisURL:      firstEnv("REDIS_URL", "REDIS_ADDR", "REDIS_URI"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       getEnv("MONGO_DB", "voicedesk"),
		AnalysisStore: strings.ToLower(getEnv("ANALYSIS_STORE", "postgres")),
		CacheTTL:      getDuration("ANALYSIS_CACHE_TTL", 24*time.Hour),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		VertexProject:  os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation: getEnv("VERTEX_LOCATION", "us-central1"),
		VertexModel:    getEnv("VERTEX_MODEL", "gemini-1.5-flash"),

		HamsaAPIKey:    os.Getenv("HAMSA_API_KEY"),
		HamsaBaseURL:   getEnv("HAMSA_API_URL", "https://api.hamsa.ai"),
		HamsaProjectID: os.Getenv("HAMSA_PROJECT_ID"),

		ChatKitWorkflowID: os.Getenv("CHATKIT_WORKFLOW_ID"),
		ChatKitBaseURL:    getEnv("CHATKIT_BASE_URL", "https://api.openai.com/v1"),
		ChatKitDemoUser:   getEnv("CHATKIT_DEMO_USER", "demo-user"),

		GCSBucket: os.Getenv("GCS_BUCKET"),

		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:   os.Getenv("AUTH_JWT_ISSUER"),
		JWTAudience: os.Getenv("AUTH_JWT_AUDIENCE"),

		SentryDSN: os.Getenv("SENTRY_DSN"),

		AnalysisCoalesce: getBool("ANALYSIS_COALESCE", true),
		AnalysisWorkers:  getInt("ANALYSIS_WORKERS", 2),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
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
