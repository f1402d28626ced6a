package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Sync     SyncConfig
	Schedule ScheduleConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig governs read-side caching of occupancy results.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SyncConfig controls document discovery and the extraction worker pool.
type SyncConfig struct {
	Workers             int
	Cron                string
	DocsDir             string
	ManifestPath        string
	IndexURL            string
	DownloadConcurrency int
	HTTPTimeout         time.Duration
}

// ScheduleConfig holds calendar-wide defaults.
type ScheduleConfig struct {
	MaxWeek           int
	CompareSubgroup   bool
	CompareLessonType bool
}

// NotifyConfig configures the change notification channel.
type NotifyConfig struct {
	Enabled bool
	Channel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	workers := v.GetInt("SYNC_WORKERS")
	if workers <= 0 {
		workers = 4
	}
	cfg.Sync = SyncConfig{
		Workers:             workers,
		Cron:                v.GetString("SYNC_CRON"),
		DocsDir:             v.GetString("SYNC_DOCS_DIR"),
		ManifestPath:        v.GetString("SYNC_MANIFEST_PATH"),
		IndexURL:            v.GetString("SYNC_INDEX_URL"),
		DownloadConcurrency: v.GetInt("SYNC_DOWNLOAD_CONCURRENCY"),
		HTTPTimeout:         parseDuration(v.GetString("SYNC_HTTP_TIMEOUT"), 30*time.Second),
	}

	maxWeek := v.GetInt("MAX_WEEK")
	if maxWeek <= 0 {
		maxWeek = 17
	}
	cfg.Schedule = ScheduleConfig{
		MaxWeek:           maxWeek,
		CompareSubgroup:   v.GetBool("CHANGE_COMPARE_SUBGROUP"),
		CompareLessonType: v.GetBool("CHANGE_COMPARE_LESSON_TYPE"),
	}

	cfg.Notify = NotifyConfig{
		Enabled: v.GetBool("ENABLE_NOTIFICATIONS"),
		Channel: v.GetString("NOTIFY_CHANNEL"),
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "Europe/Moscow")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("SYNC_WORKERS", 4)
	v.SetDefault("SYNC_CRON", "0 */6 * * *")
	v.SetDefault("SYNC_DOCS_DIR", "./docs")
	v.SetDefault("SYNC_MANIFEST_PATH", "./docs/files.json")
	v.SetDefault("SYNC_INDEX_URL", "")
	v.SetDefault("SYNC_DOWNLOAD_CONCURRENCY", 4)
	v.SetDefault("SYNC_HTTP_TIMEOUT", "30s")

	v.SetDefault("MAX_WEEK", 17)
	v.SetDefault("CHANGE_COMPARE_SUBGROUP", false)
	v.SetDefault("CHANGE_COMPARE_LESSON_TYPE", false)

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFY_CHANNEL", "schedule:changes")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
