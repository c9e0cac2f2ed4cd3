package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values. Secrets have no
// in-code defaults and must come from config.json or the environment.
type AppConfig struct {
	AppPort            string
	GinMode            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminSessionHours  int

	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for read caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Object storage collaborator; local disk is used when Endpoint is empty
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StoragePublicURL string
	StorageUseSSL    bool
	UploadDir        string

	// Generative-text provider
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var (
	cfg    AppConfig
	loaded bool
)

// Load loads the application configuration. Precedence:
// config/config.json -> defaults -> environment variable overrides.
// It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads a grouped JSON file into out if present. A missing
// file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"]; ok {
		setString(app, "AppPort", &out.AppPort)
		setString(app, "GinMode", &out.GinMode)
		setString(app, "JWTSecret", &out.JWTSecret)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
		setInt(app, "AdminSessionHours", &out.AdminSessionHours)
		setStringSlice(app, "AllowedOrigins", &out.AllowedOrigins)
	}
	if db, ok := raw["database"]; ok {
		setString(db, "DatabaseURI", &out.DatabaseURI)
		setString(db, "DBHost", &out.DBHost)
		setString(db, "DBPort", &out.DBPort)
		setString(db, "DBUser", &out.DBUser)
		setString(db, "DBPassword", &out.DBPassword)
		setString(db, "DBName", &out.DBName)
	}
	if rds, ok := raw["redis"]; ok {
		setString(rds, "RedisHost", &out.RedisHost)
		setInt(rds, "RedisPort", &out.RedisPort)
		setInt(rds, "RedisDB", &out.RedisDB)
		setString(rds, "RedisPassword", &out.RedisPassword)
	}
	if st, ok := raw["storage"]; ok {
		setString(st, "Endpoint", &out.StorageEndpoint)
		setString(st, "AccessKey", &out.StorageAccessKey)
		setString(st, "SecretKey", &out.StorageSecretKey)
		setString(st, "Bucket", &out.StorageBucket)
		setString(st, "Region", &out.StorageRegion)
		setString(st, "PublicURL", &out.StoragePublicURL)
		setBool(st, "UseSSL", &out.StorageUseSSL)
		setString(st, "UploadDir", &out.UploadDir)
	}
	if ai, ok := raw["ai"]; ok {
		setString(ai, "APIKey", &out.AIAPIKey)
		setString(ai, "BaseURL", &out.AIBaseURL)
		setString(ai, "Model", &out.AIModel)
	}
	if lg, ok := raw["log"]; ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		setBool(lg, "Compress", &out.LogCompress)
	}
	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch v := m[key].(type) {
	case float64:
		if v != 0 {
			*dst = int(v)
		}
	case int:
		if v != 0 {
			*dst = v
		}
	}
}

func setBool(m map[string]any, key string, dst *bool) {
	if v, ok := m[key].(bool); ok {
		*dst = v
	}
}

func setStringSlice(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	if len(res) > 0 {
		*dst = res
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.AdminSessionHours == 0 {
		c.AdminSessionHours = 24
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "plume"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.UploadDir == "" {
		c.UploadDir = "static/uploads"
	}
	if c.AIModel == "" {
		c.AIModel = "gpt-4o-mini"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	envString("APP_PORT", &c.AppPort)
	envString("GIN_MODE", &c.GinMode)
	envString("JWT_SECRET", &c.JWTSecret)
	envInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	envInt("ADMIN_SESSION_HOURS", &c.AdminSessionHours)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	envString("DATABASE_URI", &c.DatabaseURI)
	envString("DB_HOST", &c.DBHost)
	envString("DB_PORT", &c.DBPort)
	envString("DB_USER", &c.DBUser)
	envString("DB_PASSWORD", &c.DBPassword)
	envString("DB_NAME", &c.DBName)

	envString("REDIS_HOST", &c.RedisHost)
	envInt("REDIS_PORT", &c.RedisPort)
	envInt("REDIS_DB", &c.RedisDB)
	envString("REDIS_PASSWORD", &c.RedisPassword)

	envString("STORAGE_ENDPOINT", &c.StorageEndpoint)
	envString("STORAGE_ACCESS_KEY", &c.StorageAccessKey)
	envString("STORAGE_SECRET_KEY", &c.StorageSecretKey)
	envString("STORAGE_BUCKET", &c.StorageBucket)
	envString("STORAGE_REGION", &c.StorageRegion)
	envString("STORAGE_PUBLIC_URL", &c.StoragePublicURL)
	envBool("STORAGE_USE_SSL", &c.StorageUseSSL)
	envString("UPLOAD_DIR", &c.UploadDir)

	envString("AI_API_KEY", &c.AIAPIKey)
	envString("AI_BASE_URL", &c.AIBaseURL)
	envString("AI_MODEL", &c.AIModel)

	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_PATH", &c.LogPath)
	envInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	envInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	envInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	envBool("LOG_COMPRESS", &c.LogCompress)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s: %v", key, err)
		}
		*dst = i
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
