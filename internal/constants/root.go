package constants

import "time"

const (
	AppName            = "weekcal"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/weekcal/weekcal.db"
	DefaultServerPath  = "~/.config/weekcal/server.yaml"
	Version            = "v0.1.0"

	// EnvDBConnection holds a PostgreSQL connection string (password allowed here, unlike --config)
	EnvDBConnection = "WEEKCAL_DB_CONNECTION"

	// Planning defaults
	DefaultPlanDays        = 7
	DefaultGranularityMin  = 15
	DefaultBufferMin       = 0
	DefaultTaskDurationMin = 30
	MinTaskDurationMin     = 5
	MaxTaskDurationMin     = 720
	MaxPlanDays            = 62
	MaxBufferMin           = 240

	// MissedFixedGrace is how long past its fixed start a pinned task may still be honored
	MissedFixedGrace = 15 * time.Minute

	// Feed constants
	FeedRefreshInterval = 5 * time.Minute
	DefaultFeedTokenTTL = 30 * 24 * time.Hour
	FeedContentType     = "text/calendar; charset=utf-8"
	FeedCalendarName    = "weekcal plan"
	FeedUIDDomain       = "weekcal"
	FeedProductID       = "-//julianstephens//weekcal " + Version + "//EN"

	// Sync constants
	DefaultSyncTimeout    = 30 * time.Second
	DefaultMaxConcurrent  = 4
	DefaultMaxFeedBytes   = 10 << 20
	SyncUserAgent         = AppName + "/" + Version
	ValidatorETagPrefix   = "etag:"
	ValidatorModifiedFrom = "lm:"

	// Reasons surfaced on scheduled items
	ReasonMissedFixed = "Rescheduled after missed fixed slot"
)
