package constants

import "time"

// Service timeouts
const (
	DefaultTimeout    = 30 * time.Second
	HTTPClientTimeout = 10 * time.Second
)

// Database pool settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Redis key prefixes
const (
	RedisKeyTokenBlacklist = "token:blacklist:"
	RedisKeySyncLease      = "calendar:sync:lease:"
)

// JWT token scopes
const (
	// ScopeTokenAccess is the only scope the API middleware accepts.
	ScopeTokenAccess = "access"
)

// OAuth / calendar sync tuning
const (
	// TokenRefreshSkew is subtracted from the stored expiry so tokens are
	// refreshed before Google considers them expired.
	TokenRefreshSkew = 60 * time.Second

	// StateTokenTTL bounds how long an authorization redirect may stay
	// outstanding before its state token is rejected.
	StateTokenTTL = 10 * time.Minute

	// SyncWindowDays is the look-ahead window pulled on every sync.
	SyncWindowDays = 30

	// SyncMaxEvents caps the number of remote events accumulated per sync.
	SyncMaxEvents = 250

	// SyncLeaseTTL bounds the per-user in-flight sync guard so a crashed
	// worker cannot wedge a user's syncs.
	SyncLeaseTTL = 5 * time.Minute
)
