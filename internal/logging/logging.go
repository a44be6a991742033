// Package logging provides the zerolog-based structured logger used across
// the service. Initialise once at startup with Init; the package-level
// helpers (Debug, Info, Warn, Error) write through the global logger.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("tenant", tenantID).Msg("event emitted")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error. Default: info.
	Level string
	// Format is json or console. Default: json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	// Defaults so logging works before an explicit Init call.
	initLogger(Config{Level: "info", Format: "json", Output: os.Stderr})
}

// Init configures the global logger. Safe to call more than once.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	initLogger(cfg)
}

func initLogger(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// L returns a copy of the global logger for callers that want sub-loggers.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug starts a debug-level log event.
func Debug() *zerolog.Event { l := L(); return l.Debug() }

// Info starts an info-level log event.
func Info() *zerolog.Event { l := L(); return l.Info() }

// Warn starts a warn-level log event.
func Warn() *zerolog.Event { l := L(); return l.Warn() }

// Error starts an error-level log event.
func Error() *zerolog.Event { l := L(); return l.Error() }

// Fatal starts a fatal-level log event. The process exits after .Msg().
func Fatal() *zerolog.Event { l := L(); return l.Fatal() }
