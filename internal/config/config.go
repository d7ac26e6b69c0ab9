package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the server settings, populated from the environment.
type Config struct {
	Port         string
	DataDir      string
	DBPath       string
	ProfilesPath string
	FFmpegBin    string
	Retention    time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		DataDir:      getenv("DATA_DIR", "data"),
		ProfilesPath: os.Getenv("PROFILES_PATH"),
		FFmpegBin:    getenv("FFMPEG_BIN", "ffmpeg"),
		Retention:    120 * time.Second,
	}
	cfg.DBPath = getenv("DB_PATH", cfg.DataDir+"/clipforge.db")

	if v := os.Getenv("RETENTION_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Retention = time.Duration(secs) * time.Second
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
