// Package config centralizes how the poster service reads environment
// variables and the optional settings file, exposing them as strongly typed Go
// values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service. Struct fields in Go
// begin with capital letters when they must be exported (visible to other
// packages), while lower-case fields remain private.
type Config struct {
	Address  string
	AppEnv   string
	LogLevel string

	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	TaskTTL     time.Duration

	MaxDistance     int
	WarningDistance int
	PosterSizes     PosterSizes
	// CountryAliases extends the built-in groups of country names that the
	// place validator treats as the same country.
	CountryAliases [][]string

	PostersDir    string
	TempDir       string
	ThemesDir     string
	FontsDir      string
	ThumbnailSize int

	AdminPassword string

	NominatimURL       string
	NominatimUserAgent string
	GeocodeTimeout     time.Duration
	GeocodeInterval    time.Duration
	OverpassURL        string
	OverpassTimeout    time.Duration

	GeoIPDBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string

	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UseSSL        bool
	S3Region        string
	S3GalleryBucket string
}

const (
	defaultAddress         = ":8000"
	defaultWorkerCount     = 2
	defaultTaskTimeout     = 10 * time.Minute
	defaultTaskTTL         = 24 * time.Hour
	defaultMaxDistance     = 25000
	defaultWarningDistance = 20000
	defaultThumbnailSize   = 1080
	defaultAdminPassword   = "admin123"
	defaultNominatimURL    = "https://nominatim.openstreetmap.org"
	defaultUserAgent       = "city_map_poster"
	defaultGeocodeTimeout  = 10 * time.Second
	defaultGeocodeInterval = time.Second
	defaultOverpassURL     = "https://overpass-api.de/api/interpreter"
	defaultOverpassTimeout = 3 * time.Minute
)

// Load reads configuration from a local .env file (when present), environment
// variables and the optional YAML settings file, then validates the result.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		Address:  readEnv("MAPPOSTER_ADDRESS", defaultAddress),
		AppEnv:   readEnv("APP_ENV", "development"),
		LogLevel: readEnv("LOG_LEVEL", ""),

		Workers:     parseInt("MAPPOSTER_WORKERS", defaultWorkerCount),
		QueueSize:   parseInt("MAPPOSTER_QUEUE_SIZE", 0),
		TaskTimeout: parseDuration("MAPPOSTER_TASK_TIMEOUT", defaultTaskTimeout),
		TaskTTL:     parseDuration("MAPPOSTER_TASK_TTL", defaultTaskTTL),

		MaxDistance:     parseInt("MAPPOSTER_MAX_DISTANCE", defaultMaxDistance),
		WarningDistance: parseInt("MAPPOSTER_WARNING_DISTANCE", defaultWarningDistance),
		PosterSizes:     DefaultPosterSizes(),

		PostersDir:    readEnv("MAPPOSTER_POSTERS_DIR", "posters"),
		TempDir:       readEnv("MAPPOSTER_TEMP_DIR", "temp_posters"),
		ThemesDir:     readEnv("MAPPOSTER_THEMES_DIR", "themes"),
		FontsDir:      readEnv("MAPPOSTER_FONTS_DIR", "fonts"),
		ThumbnailSize: parseInt("MAPPOSTER_THUMBNAIL_SIZE", defaultThumbnailSize),

		AdminPassword: readEnv("ADMIN_PASSWORD", defaultAdminPassword),

		NominatimURL:       readEnv("NOMINATIM_URL", defaultNominatimURL),
		NominatimUserAgent: readEnv("NOMINATIM_USER_AGENT", defaultUserAgent),
		GeocodeTimeout:     parseDuration("GEOCODE_TIMEOUT", defaultGeocodeTimeout),
		GeocodeInterval:    parseDuration("GEOCODE_INTERVAL", defaultGeocodeInterval),
		OverpassURL:        readEnv("OVERPASS_URL", defaultOverpassURL),
		OverpassTimeout:    parseDuration("OVERPASS_TIMEOUT", defaultOverpassTimeout),

		GeoIPDBPath: readEnv("GEOIP_DB_PATH", ""),

		RedisAddr:     readEnv("REDIS_ADDR", ""),
		RedisPassword: readEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt("REDIS_DB", 0),

		DatabaseURL: readEnv("DATABASE_URL", ""),

		S3Endpoint:      readEnv("S3_ENDPOINT", ""),
		S3AccessKey:     readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     readEnv("S3_SECRET_KEY", ""),
		S3UseSSL:        parseBool("S3_USE_SSL", false),
		S3Region:        readEnv("S3_REGION", "us-east-1"),
		S3GalleryBucket: readEnv("S3_GALLERY_BUCKET", "gallery"),
	}

	if path := readEnv("MAPPOSTER_SETTINGS", ""); path != "" {
		settings, err := LoadSettings(path)
		if err != nil {
			return nil, err
		}
		if err := settings.Apply(cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFallbacks() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = c.Workers * 16
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = defaultTaskTimeout
	}
	if c.TaskTTL <= 0 {
		c.TaskTTL = defaultTaskTTL
	}
	if c.ThumbnailSize <= 0 {
		c.ThumbnailSize = defaultThumbnailSize
	}
	if c.GeocodeTimeout <= 0 {
		c.GeocodeTimeout = defaultGeocodeTimeout
	}
	if c.GeocodeInterval < 0 {
		c.GeocodeInterval = 0
	}
	if c.OverpassTimeout <= 0 {
		c.OverpassTimeout = defaultOverpassTimeout
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.MaxDistance <= 0 {
		return fmt.Errorf("config: max distance must be positive, got %d", c.MaxDistance)
	}
	if c.WarningDistance <= 0 || c.WarningDistance > c.MaxDistance {
		c.WarningDistance = c.MaxDistance
	}
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("config: ADMIN_PASSWORD must not be empty")
	}
	if err := c.PosterSizes.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Development reports whether the service runs in a local development setup.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5m" or "30s".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}
