package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Realtime RealtimeConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Chat     ChatConfig
	Client   ClientConfig
	Notify   NotificationConfig
	LLM      LLMConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// RealtimeConfig controls the websocket change-feed listener.
type RealtimeConfig struct {
	Host         string
	Port         string
	Path         string
	RedisChannel string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines agent authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SeedAgentEmail        string
	SeedAgentPassword     string
}

// StorageConfig selects and configures object storage for chat images.
type StorageConfig struct {
	Driver         string
	Bucket         string
	LocalPath      string
	PublicBaseURL  string
	S3Endpoint     string
	S3Region       string
	S3AccessKeyID  string
	S3SecretKey    string
	S3UsePathStyle bool
}

// ChatConfig holds the tunables of the chat flows.
type ChatConfig struct {
	PageSize             int
	MaxImageBytes        int64
	TypingIdleMillis     int
	TypingDebounceMillis int
	TypingStaleSeconds   int
	ClosingMessage       string
}

// ClientConfig configures the remote chat client used by chatctl.
type ClientConfig struct {
	BaseURL        string
	RealtimeURL    string
	TimeoutSeconds int
}

// NotificationConfig configures the new-request webhook.
type NotificationConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// LLMConfig configures the model behind the FAQ responder. Without an API
// key the responder falls back to keyword matching.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "live-chat"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 8*1024*1024),
		},
		Realtime: RealtimeConfig{
			Host:         getEnv("REALTIME_HOST", "0.0.0.0"),
			Port:         getEnv("REALTIME_PORT", "8081"),
			Path:         getEnv("REALTIME_PATH", "/realtime"),
			RedisChannel: getEnv("REALTIME_REDIS_CHANNEL", "live-chat:changes"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SeedAgentEmail:        strings.TrimSpace(os.Getenv("AUTH_SEED_AGENT_EMAIL")),
			SeedAgentPassword:     os.Getenv("AUTH_SEED_AGENT_PASSWORD"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			Bucket:         getEnv("STORAGE_BUCKET", "chat-images"),
			LocalPath:      getEnv("STORAGE_LOCAL_PATH", "./data/uploads"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files"),
			S3Endpoint:     os.Getenv("STORAGE_S3_ENDPOINT"),
			S3Region:       getEnv("STORAGE_S3_REGION", "us-east-1"),
			S3AccessKeyID:  os.Getenv("STORAGE_S3_ACCESS_KEY_ID"),
			S3SecretKey:    os.Getenv("STORAGE_S3_SECRET_KEY"),
			S3UsePathStyle: getEnvAsBool("STORAGE_S3_USE_PATH_STYLE", true),
		},
		Chat: ChatConfig{
			PageSize:             getEnvAsInt("CHAT_PAGE_SIZE", 20),
			MaxImageBytes:        int64(getEnvAsInt("CHAT_MAX_IMAGE_BYTES", 5*1024*1024)),
			TypingIdleMillis:     getEnvAsInt("CHAT_TYPING_IDLE_MS", 1500),
			TypingDebounceMillis: getEnvAsInt("CHAT_TYPING_DEBOUNCE_MS", 1000),
			TypingStaleSeconds:   getEnvAsInt("CHAT_TYPING_STALE_SECONDS", 30),
			ClosingMessage:       getEnv("CHAT_CLOSING_MESSAGE", "Your issue has been resolved. Thank you for reaching out!"),
		},
		Client: ClientConfig{
			BaseURL:        getEnv("CHAT_API_URL", "http://localhost:8080"),
			RealtimeURL:    getEnv("CHAT_REALTIME_URL", "ws://localhost:8081/realtime"),
			TimeoutSeconds: getEnvAsInt("CHAT_CLIENT_TIMEOUT_SECONDS", 15),
		},
		Notify: NotificationConfig{
			WebhookURL:     strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5),
		},
		LLM: LLMConfig{
			APIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:        strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 100),
			Temperature:    float32(getEnvAsFloat("OPENAI_TEMPERATURE", 0.7)),
			TimeoutSeconds: getEnvAsInt("OPENAI_TIMEOUT_SECONDS", 20),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addr returns the websocket bind address.
func (r RealtimeConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// TypingIdle is how long typing may go quiet before the state drops to idle.
func (c ChatConfig) TypingIdle() time.Duration {
	return time.Duration(c.TypingIdleMillis) * time.Millisecond
}

// TypingDebounce is the trailing window between typing publishes.
func (c ChatConfig) TypingDebounce() time.Duration {
	return time.Duration(c.TypingDebounceMillis) * time.Millisecond
}

// TypingStale is how old a typing flag may get before the sweeper clears it.
func (c ChatConfig) TypingStale() time.Duration {
	if c.TypingStaleSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TypingStaleSeconds) * time.Second
}

// Enabled reports whether a model is configured.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// Timeout bounds one completion call.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the remote client request timeout.
func (c ClientConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
