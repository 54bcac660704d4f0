package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Replaced in tests to capture console output.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// ScopeName is the instrumentation scope of records bridged to OTel.
const ScopeName = "drivesim"

// SlogManager manages slog-based logging with optional GELF and OTel outputs.
type SlogManager struct {
	logger *slog.Logger

	// extra handlers added before Setup, e.g. GELF
	extra []slog.Handler

	// Context is called for every record; its attributes are appended.
	Context ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// AddGELF ships records as JSON to a Graylog GELF UDP input. It takes effect
// on the next Setup.
func (m *SlogManager) AddGELF(address, level string) error {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return fmt.Errorf("gelf writer %s: %w", address, err)
	}
	w.Facility = ScopeName
	m.extra = append(m.extra, slog.NewJSONHandler(w, handlerOptions(level)))
	return nil
}

// Setup initializes the logging system. Records go to file when one is
// given and to stdout otherwise. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	opts := handlerOptions(level)

	var handlers []slog.Handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, opts))
	}
	handlers = append(handlers, m.extra...)

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ScopeName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.Context != nil {
		h = NewContextHandler(h, m.Context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}
