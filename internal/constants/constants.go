package constants

import "time"

const (
	DatabaseTimeout      = 5 * time.Second
	RequestTimeout       = 30 * time.Second
	RecalculationTimeout = 20 * time.Second
)

const (
	DBMaxOpenConns    = 16
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMS   = 5000
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MinLobbySize = 2
	MaxLobbySize = 8

	// RebuildConcurrency bounds how many tournaments RecalculateAll rebuilds at once.
	RebuildConcurrency = 4
)

const (
	DefaultStandingsLimit = 100
	MaxStandingsLimit     = 1000
)
