package types

type RunMode string

const (
	// ModeLocal runs the API server with the background reconciler
	ModeLocal RunMode = "local"
	// ModeAPI runs the API server alone, pending calls settle only through
	// webhooks and checkout returns
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
