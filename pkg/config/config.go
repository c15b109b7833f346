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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Progress  ProgressConfig
	Reminders ReminderConfig
	Scanner   ScannerConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProgressConfig tunes progress summaries and their cache.
type ProgressConfig struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	DueSoonWindow  int
	ExportTitleFmt string
	// ExportCSVDelimiter is the first rune of PROGRESS_EXPORT_CSV_DELIMITER.
	ExportCSVDelimiter rune
	ExportExcelBOM     bool
}

// ReminderConfig holds defaults for reminder preferences.
type ReminderConfig struct {
	DefaultOffsetMin int
}

// ScannerConfig configures the out-of-process reminder scanner.
type ScannerConfig struct {
	Interval      time.Duration
	Workers       int
	Retries       int
	DedupeTTL     time.Duration
	EventsChannel string
	MetricsPort   int
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
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	window := v.GetInt("DUE_SOON_WINDOW_DAYS")
	if window < 0 {
		window = 7
	}
	cfg.Progress = ProgressConfig{
		CacheEnabled:       v.GetBool("ENABLE_PROGRESS_CACHE"),
		CacheTTL:           parseDuration(v.GetString("PROGRESS_CACHE_TTL"), 5*time.Minute),
		DueSoonWindow:      window,
		ExportTitleFmt:     v.GetString("PROGRESS_EXPORT_TITLE"),
		ExportCSVDelimiter: firstRune(v.GetString("PROGRESS_EXPORT_CSV_DELIMITER"), ','),
		ExportExcelBOM:     v.GetBool("PROGRESS_EXPORT_EXCEL_BOM"),
	}

	offset := v.GetInt("REMINDER_DEFAULT_OFFSET_MIN")
	if offset < 0 {
		offset = 1440
	}
	cfg.Reminders = ReminderConfig{DefaultOffsetMin: offset}

	cfg.Scanner = ScannerConfig{
		Interval:      parseDuration(v.GetString("SCANNER_INTERVAL"), time.Minute),
		Workers:       v.GetInt("SCANNER_WORKERS"),
		Retries:       v.GetInt("SCANNER_RETRIES"),
		DedupeTTL:     parseDuration(v.GetString("SCANNER_DEDUPE_TTL"), 24*time.Hour),
		EventsChannel: v.GetString("REMINDER_EVENTS_CHANNEL"),
		MetricsPort:   v.GetInt("SCANNER_METRICS_PORT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutontrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "tutontrack")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_PROGRESS_CACHE", false)
	v.SetDefault("PROGRESS_CACHE_TTL", "5m")
	v.SetDefault("DUE_SOON_WINDOW_DAYS", 7)
	v.SetDefault("PROGRESS_EXPORT_TITLE", "Progress Tuton %s")
	v.SetDefault("PROGRESS_EXPORT_CSV_DELIMITER", ",")
	v.SetDefault("PROGRESS_EXPORT_EXCEL_BOM", false)

	v.SetDefault("REMINDER_DEFAULT_OFFSET_MIN", 1440)

	v.SetDefault("SCANNER_INTERVAL", "1m")
	v.SetDefault("SCANNER_WORKERS", 2)
	v.SetDefault("SCANNER_RETRIES", 3)
	v.SetDefault("SCANNER_DEDUPE_TTL", "24h")
	v.SetDefault("REMINDER_EVENTS_CHANNEL", "tuton:reminders:due")
	v.SetDefault("SCANNER_METRICS_PORT", 9091)
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

func firstRune(raw string, fallback rune) rune {
	for _, r := range raw {
		return r
	}
	return fallback
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
