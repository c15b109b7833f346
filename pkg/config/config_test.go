package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newViper(nil))

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.False(t, cfg.Progress.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Progress.CacheTTL)
	assert.Equal(t, 7, cfg.Progress.DueSoonWindow)
	assert.Equal(t, 1440, cfg.Reminders.DefaultOffsetMin)
	assert.Equal(t, time.Minute, cfg.Scanner.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Scanner.DedupeTTL)
	assert.Equal(t, "tuton:reminders:due", cfg.Scanner.EventsChannel)
	assert.Equal(t, 9091, cfg.Scanner.MetricsPort)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ',', cfg.Progress.ExportCSVDelimiter)
	assert.False(t, cfg.Progress.ExportExcelBOM)
}

func TestFromViperOverridesAndFallbacks(t *testing.T) {
	cfg := fromViper(newViper(map[string]interface{}{
		"ALLOWED_ORIGINS":               " https://desk.example , ,http://localhost:5173",
		"PROGRESS_CACHE_TTL":            "not-a-duration",
		"SCANNER_INTERVAL":              "30s",
		"DUE_SOON_WINDOW_DAYS":          -3,
		"REMINDER_DEFAULT_OFFSET_MIN":   90,
		"ENABLE_PROGRESS_CACHE":         true,
		"PROGRESS_EXPORT_CSV_DELIMITER": ";",
	}))

	assert.Equal(t, []string{"https://desk.example", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Progress.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 7, cfg.Progress.DueSoonWindow)
	assert.Equal(t, 90, cfg.Reminders.DefaultOffsetMin)
	assert.True(t, cfg.Progress.CacheEnabled)
	assert.Equal(t, ';', cfg.Progress.ExportCSVDelimiter)
}
