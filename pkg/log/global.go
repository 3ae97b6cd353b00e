package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
	globalLogger   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

// SetupLogger configures the package-level logger and provider with the given level name.
func SetupLogger(level string) {
	lvl := ToLogLevel(level)

	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = globalLogger.Level(lvl)
	globalProvider = NewZerologProvider(lvl)
}

// SetProvider installs p as the package-level provider.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// GetProvider returns the package-level provider, creating an info-level one on first use.
func GetProvider() LoggerProvider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p != nil {
		return p
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(zerolog.InfoLevel)
	}
	return globalProvider
}

// GetLogger returns the raw zerolog logger for event-style logging.
func GetLogger() *zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	l := globalLogger
	return &l
}

// GetLoggerWithName returns a named Logger from the package-level provider.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}

// LogError logs err at error level with msg. %+v detail (stack traces) goes to the debug level.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	l := GetLogger()
	l.Error().Err(err).Msg(msg)
	l.Debug().Str("detail", sprintDetail(err)).Msg(msg)
}
