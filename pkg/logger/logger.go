// Package logger provides a process-wide structured logger backed by zerolog.
//
// Initialise once at startup with Init, then hand sub-loggers to components
// with Component. Components never reach for the singleton themselves.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	// Anything else means info.
	Level string
	// Pretty switches to zerolog's console writer for local runs.
	Pretty bool
	// Service is attached to every entry as the "service" field when set.
	Service string
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu   sync.Mutex
	root *zerolog.Logger
)

// Init builds the process logger. Later calls return the first logger
// unchanged until Reset.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	l := zerolog.New(writer(opts)).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		l = l.Str("service", opts.Service)
	}
	built := l.Logger()
	root = &built
	return built
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	return out
}

// Get returns the process logger. Panics if Init has not been called yet.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if root == nil {
		panic("logger: Get() called before Init()")
	}
	return *root
}

// Component returns a child of the process logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset drops the process logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	root = nil
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	switch lvl, err := zerolog.ParseLevel(s); {
	case err != nil, s == "", lvl > zerolog.ErrorLevel:
		return zerolog.InfoLevel
	default:
		return lvl
	}
}
