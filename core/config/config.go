package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port     int
	LogLevel string
	LogType  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// GoogleAPIConfig holds the registered OAuth client plus the provider
// endpoints. The endpoints default to Google's and are overridable so tests
// can point the services at a local server.
type GoogleAPIConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	AuthURL         string
	TokenURL        string
	ProfileURL      string
	CalendarBaseURL string
}

type FrontendConfig struct {
	// CalendarRedirectURL is the landing page the OAuth callback redirects
	// to, with the outcome appended as query parameters.
	CalendarRedirectURL string
}

type SyncConfig struct {
	IntervalMinutes int
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GoogleAPI GoogleAPIConfig
	Frontend  FrontendConfig
	Sync      SyncConfig
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (if present) and environment variables into the singleton.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 7070)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_TYPE", "json")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "taskboard")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_EXPIRE_HOURS", 24)

	v.SetDefault("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
	v.SetDefault("GOOGLE_PROFILE_URL", "https://www.googleapis.com/oauth2/v2/userinfo")
	v.SetDefault("GOOGLE_CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3")

	v.SetDefault("FRONTEND_CALENDAR_REDIRECT_URL", "http://localhost:3000/settings/calendar")
	v.SetDefault("SYNC_INTERVAL_MINUTES", 15)

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetInt("PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
			LogType:  v.GetString("LOG_TYPE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpireHours: v.GetInt("JWT_EXPIRE_HOURS"),
		},
		GoogleAPI: GoogleAPIConfig{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:     v.GetString("GOOGLE_REDIRECT_URI"),
			AuthURL:         v.GetString("GOOGLE_AUTH_URL"),
			TokenURL:        v.GetString("GOOGLE_TOKEN_URL"),
			ProfileURL:      v.GetString("GOOGLE_PROFILE_URL"),
			CalendarBaseURL: v.GetString("GOOGLE_CALENDAR_BASE_URL"),
		},
		Frontend: FrontendConfig{
			CalendarRedirectURL: v.GetString("FRONTEND_CALENDAR_REDIRECT_URL"),
		},
		Sync: SyncConfig{
			IntervalMinutes: v.GetInt("SYNC_INTERVAL_MINUTES"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the loaded config and panics when Load has not been called.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: Get called before Load")
	}
	return cfg
}

// GetSafe returns the loaded config, or false when Load has not been called.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// Set replaces the singleton. Used by tests.
func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
