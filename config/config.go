package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets (SMTP password, provider credentials) have no defaults in code.
type AppConfig struct {
	AppPort            string
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Genre catalog backend: "mysql" or "mongo"
	CatalogDriver string
	DatabaseURI   string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	MongoURI      string
	MongoDatabase string
	// SMTP relay for the contact form
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	SMTPTLS          bool
	ContactRecipient string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Upload ingest
	UploadField           string
	UploadMaxSizeBytes    int64
	UploadAllowedTypes    []string
	UploadTempDir         string
	UploadFolder          string
	UploadMaxWidth        int
	UploadMaxHeight       int
	UploadTimeoutSec      int
	UploadOrphanMaxAgeMin int
	// Remote object storage: "cloudinary" or "s3"
	StorageProvider     string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	S3Endpoint          string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3Region            string
	S3UseSSL            bool
	S3PublicBase        string
	// Signed download URLs (B2 S3 API or any S3-compatible endpoint)
	DownloadBucket    string
	DownloadURLTTLSec int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot
// and the result passed to constructors.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> .env -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}

	applyDefaults(&cfg)

	// godotenv never overrides variables that are already set in the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.CatalogDriver = getString(dbs, "CatalogDriver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if mg, ok := raw["mongo"].(map[string]any); ok {
		out.MongoURI = getString(mg, "URI")
		out.MongoDatabase = getString(mg, "Database")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "Host")
		out.SMTPPort = getInt(sm, "Port")
		out.SMTPUsername = getString(sm, "Username")
		out.SMTPPassword = getString(sm, "Password")
		out.SMTPFrom = getString(sm, "From")
		out.SMTPFromName = getString(sm, "FromName")
		out.SMTPTLS = getBool(sm, "TLS")
		out.ContactRecipient = getString(sm, "ContactRecipient")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		out.UploadField = getString(up, "Field")
		out.UploadMaxSizeBytes = int64(getInt(up, "MaxSizeBytes"))
		out.UploadAllowedTypes = getStringSlice(up, "AllowedTypes")
		out.UploadTempDir = getString(up, "TempDir")
		out.UploadFolder = getString(up, "Folder")
		out.UploadMaxWidth = getInt(up, "MaxWidth")
		out.UploadMaxHeight = getInt(up, "MaxHeight")
		out.UploadTimeoutSec = getInt(up, "TimeoutSec")
		out.UploadOrphanMaxAgeMin = getInt(up, "OrphanMaxAgeMin")
	}

	if st, ok := raw["storage"].(map[string]any); ok {
		out.StorageProvider = getString(st, "Provider")
		out.DownloadBucket = getString(st, "DownloadBucket")
		out.DownloadURLTTLSec = getInt(st, "DownloadURLTTLSec")
	}

	if cl, ok := raw["cloudinary"].(map[string]any); ok {
		out.CloudinaryCloudName = getString(cl, "CloudName")
		out.CloudinaryAPIKey = getString(cl, "APIKey")
		out.CloudinaryAPISecret = getString(cl, "APISecret")
	}

	if s3, ok := raw["s3"].(map[string]any); ok {
		out.S3Endpoint = getString(s3, "Endpoint")
		out.S3AccessKey = getString(s3, "AccessKey")
		out.S3SecretKey = getString(s3, "SecretKey")
		out.S3Bucket = getString(s3, "Bucket")
		out.S3Region = getString(s3, "Region")
		out.S3UseSSL = getBool(s3, "UseSSL")
		out.S3PublicBase = getString(s3, "PublicBase")
	}

	return nil
}

// applyDefaults fills zero values with sensible defaults.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.CatalogDriver == "" {
		c.CatalogDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBName == "" {
		c.DBName = "bookstore"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://127.0.0.1:27017"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "bookstore"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
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
	if c.UploadField == "" {
		c.UploadField = "thumbnail"
	}
	if c.UploadMaxSizeBytes == 0 {
		c.UploadMaxSizeBytes = 2 << 20
	}
	if len(c.UploadAllowedTypes) == 0 {
		c.UploadAllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/svg+xml"}
	}
	if c.UploadTempDir == "" {
		c.UploadTempDir = filepath.Join(os.TempDir(), "bookstore-ingest")
	}
	if c.UploadFolder == "" {
		c.UploadFolder = "bookstore"
	}
	if c.UploadMaxWidth == 0 {
		c.UploadMaxWidth = 500
	}
	if c.UploadMaxHeight == 0 {
		c.UploadMaxHeight = 500
	}
	if c.UploadTimeoutSec == 0 {
		c.UploadTimeoutSec = 30
	}
	if c.UploadOrphanMaxAgeMin == 0 {
		c.UploadOrphanMaxAgeMin = 15
	}
	if c.StorageProvider == "" {
		c.StorageProvider = "cloudinary"
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}
	if c.DownloadURLTTLSec == 0 {
		c.DownloadURLTTLSec = 3600
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("CATALOG_DRIVER", ""); v != "" {
		c.CatalogDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("MONGO_URI", ""); v != "" {
		c.MongoURI = v
	}
	if v := getEnv("MONGO_DATABASE", ""); v != "" {
		c.MongoDatabase = v
	}
	if v := getEnv("SMTP_HOST", ""); v != "" {
		c.SMTPHost = v
	}
	if v := getEnv("SMTP_PORT", ""); v != "" {
		c.SMTPPort = mustParseInt(v)
	}
	if v := getEnv("SMTP_USERNAME", ""); v != "" {
		c.SMTPUsername = v
	}
	if v := getEnv("SMTP_PASSWORD", ""); v != "" {
		c.SMTPPassword = v
	}
	if v := getEnv("SMTP_FROM", ""); v != "" {
		c.SMTPFrom = v
	}
	if v := getEnv("SMTP_FROM_NAME", ""); v != "" {
		c.SMTPFromName = v
	}
	if v := getEnv("SMTP_TLS", ""); v != "" {
		c.SMTPTLS = v == "true"
	}
	if v := getEnv("CONTACT_RECIPIENT", ""); v != "" {
		c.ContactRecipient = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("UPLOAD_FIELD", ""); v != "" {
		c.UploadField = v
	}
	if v := getEnv("UPLOAD_MAX_SIZE_BYTES", ""); v != "" {
		c.UploadMaxSizeBytes = int64(mustParseInt(v))
	}
	if v := getEnv("UPLOAD_ALLOWED_TYPES", ""); v != "" {
		c.UploadAllowedTypes = splitAndTrim(v)
	}
	if v := getEnv("UPLOAD_TEMP_DIR", ""); v != "" {
		c.UploadTempDir = v
	}
	if v := getEnv("UPLOAD_FOLDER", ""); v != "" {
		c.UploadFolder = v
	}
	if v := getEnv("UPLOAD_MAX_WIDTH", ""); v != "" {
		c.UploadMaxWidth = mustParseInt(v)
	}
	if v := getEnv("UPLOAD_MAX_HEIGHT", ""); v != "" {
		c.UploadMaxHeight = mustParseInt(v)
	}
	if v := getEnv("UPLOAD_TIMEOUT_SEC", ""); v != "" {
		c.UploadTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("UPLOAD_ORPHAN_MAX_AGE_MIN", ""); v != "" {
		c.UploadOrphanMaxAgeMin = mustParseInt(v)
	}
	if v := getEnv("STORAGE_PROVIDER", ""); v != "" {
		c.StorageProvider = strings.ToLower(v)
	}
	if v := getEnv("CLOUDINARY_CLOUD_NAME", ""); v != "" {
		c.CloudinaryCloudName = v
	}
	if v := getEnv("CLOUDINARY_API_KEY", ""); v != "" {
		c.CloudinaryAPIKey = v
	}
	if v := getEnv("CLOUDINARY_API_SECRET", ""); v != "" {
		c.CloudinaryAPISecret = v
	}
	if v := getEnv("S3_ENDPOINT", ""); v != "" {
		c.S3Endpoint = v
	}
	if v := getEnv("S3_ACCESS_KEY", ""); v != "" {
		c.S3AccessKey = v
	}
	if v := getEnv("S3_SECRET_KEY", ""); v != "" {
		c.S3SecretKey = v
	}
	if v := getEnv("S3_BUCKET", ""); v != "" {
		c.S3Bucket = v
	}
	if v := getEnv("S3_REGION", ""); v != "" {
		c.S3Region = v
	}
	if v := getEnv("S3_USE_SSL", ""); v != "" {
		c.S3UseSSL = v == "true"
	}
	if v := getEnv("S3_PUBLIC_BASE", ""); v != "" {
		c.S3PublicBase = v
	}
	if v := getEnv("DOWNLOAD_BUCKET", ""); v != "" {
		c.DownloadBucket = v
	}
	if v := getEnv("DOWNLOAD_URL_TTL_SEC", ""); v != "" {
		c.DownloadURLTTLSec = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
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
