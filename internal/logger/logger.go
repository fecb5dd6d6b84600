package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/nosan/embedded-cassandra-sub005/internal/config"
)

var (
	mu            sync.RWMutex
	defaultLogger = zerolog.Nop()
)

// GetLogLevelFromString converts a level name, defaulting to warn for unknown values
func GetLogLevelFromString(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.WarnLevel
	}
	return parsed
}

/**
 * Initialize the logging system
 * @param {config.LogConfig} cfg - Level and output path ("console" or empty for stdout)
 * @description
 * - Creates the log directory when a file path is given
 * - Falls back to stdout if the file cannot be opened
 * - Uses a human readable console writer when stdout is a terminal
 */
func InitLogger(cfg *config.LogConfig) {
	var output io.Writer
	if cfg.Path == "console" || cfg.Path == "" {
		output = os.Stdout
		if isatty.IsTerminal(os.Stdout.Fd()) {
			output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
	} else {
		output = setupLogFileOutput(cfg.Path)
	}
	SetOutput(output, GetLogLevelFromString(cfg.Level))
}

// SetOutput replaces the default logger; used by InitLogger and tests.
func SetOutput(w io.Writer, level zerolog.Level) {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func setupLogFileOutput(logPath string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		return os.Stdout
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		return os.Stdout
	}
	return file
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := defaultLogger
	return &l
}

// WithNode returns a child logger tagged with the node name. Server output
// lines are logged through it.
func WithNode(name string) zerolog.Logger {
	return current().With().Str("node", name).Logger()
}

// Enabled reports whether messages at level would be written.
func Enabled(level zerolog.Level) bool {
	l := current()
	return l.GetLevel() <= level && level >= zerolog.GlobalLevel()
}

func Debug(v ...interface{}) {
	current().Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

func Info(v ...interface{}) {
	current().Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

func Warn(v ...interface{}) {
	current().Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

func Error(v ...interface{}) {
	current().Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}

// Fatal logs and exits with status 1
func Fatal(v ...interface{}) {
	current().Error().Msg(fmt.Sprint(v...))
	fmt.Fprintf(os.Stderr, "FATAL: %s\n", fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs and exits with status 1
func Fatalf(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
	os.Exit(1)
}
