package constants

import "time"

const (
	StatsCacheTTL    = 10 * time.Minute
	EmptyHistoryTTL  = 2 * time.Minute
	StaleRetention   = 1 * time.Hour
	PlayerRefreshTTL = 24 * time.Hour
	JanitorInterval  = 1 * time.Minute
)

const (
	DefaultMatchLimit = 20
	MaxMatchLimit     = 100
	DefaultChunkSize  = 10
	SoloQueueType     = "RANKED_SOLO_5x5"
)

const (
	ExternalAPITimeout = 5 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 60 * time.Second
	RefreshTimeout     = 2 * time.Minute
	DefaultRetryAfter  = 5 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	RefreshWorkers    = 4
	RefreshQueueSize  = 64
	RefreshAttempts   = 3
	RefreshBackoff    = 2 * time.Second
	ShutdownTimeout   = 5 * time.Second
	RedisWriteTimeout = 2 * time.Second
)
