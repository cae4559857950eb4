package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout     = 60 * time.Second
	ProviderRequestTimeout = 3 * time.Minute
	ServerShutdownTimeout  = 30 * time.Second
	TelemetryFlushTimeout  = 5 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge             = 7 * 24 * time.Hour // 7 days
	DefaultSessionIdleTimeout = 30 * time.Minute
	SessionJanitorInterval    = time.Minute

	// Streaming
	SSEKeepAliveInterval = 15 * time.Second
	WebsocketWriteWait   = 10 * time.Second
)

// Translator defaults
const (
	DefaultDebounce          = 500 * time.Millisecond
	DefaultHistoryLimit      = 20
	DefaultMaxTextLength     = 5000
	DefaultStreamBuffer      = 16
	DefaultDemoDelay         = 1500 * time.Millisecond
	DefaultOverrideCacheSize = 4096
	DefaultOverrideCacheTTL  = time.Minute
	DefaultMaxUploadBytes    = 5 << 20
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "borneo-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob: data:;"
)
