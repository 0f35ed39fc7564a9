// Package logging provides the process-wide structured logger.
//
// It wraps a single zerolog.Logger configured from LOG_LEVEL / LOG_FORMAT
// (JSON by default, console for local development). Request handlers log
// through Ctx so every line carries the request id.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output io.Writer
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	Init(Config{})
}

// Init (re)configures the global logger. Empty fields fall back to info/json/stdout.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.MessageFieldName = "msg"

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	mu.Lock()
	log = l
	mu.Unlock()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger. Tests use it to capture output.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }

type ctxKey struct{}

// WithRequestID returns a context carrying a child logger tagged with rid.
func WithRequestID(ctx context.Context, rid string) context.Context {
	l := Logger().With().Str("rid", rid).Logger()
	return context.WithValue(ctx, ctxKey{}, &l)
}

// Ctx returns the request-scoped logger stored in ctx, or the global logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return l
		}
	}
	l := Logger()
	return &l
}
