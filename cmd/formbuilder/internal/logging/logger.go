// Package logging provides structured logging with zerolog.
// It supports json, console and simple text formats, log levels, file
// output, request ID tracking and masking of sensitive form fields.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
)

// simpleWriter formats logs as: [LEVEL](TIMESTAMP): {MESSAGE}
type simpleWriter struct {
	out io.Writer
}

func (sw *simpleWriter) Write(p []byte) (n int, err error) {
	var logEntry map[string]any
	if err := json.Unmarshal(p, &logEntry); err != nil {
		return sw.out.Write(p)
	}

	level, _ := logEntry["level"].(string)
	timestamp, _ := logEntry["time"].(string)
	message, _ := logEntry["message"].(string)

	formatted := fmt.Sprintf("[%s](%s): %s", strings.ToUpper(level), timestamp, message)
	if component, ok := logEntry["component"].(string); ok {
		formatted = fmt.Sprintf("[%s](%s) %s: %s", strings.ToUpper(level), timestamp, component, message)
	}

	if _, err := sw.out.Write([]byte(formatted + "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Level represents logging levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a configured level name to a Level, defaulting to info
func ParseLevel(name string) Level {
	switch Level(strings.ToLower(name)) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level Level

	// Format is the output format (json, console or simple)
	Format string

	// Output is the writer for logs (default: os.Stdout)
	Output io.Writer

	// FilePath is the path to the log file (if specified, Output is ignored)
	FilePath string

	ServiceName string
	Version     string

	// SlowQueryThreshold is the duration after which a query is considered slow
	SlowQueryThreshold time.Duration

	// SensitiveFields are field names that should be masked in logs
	SensitiveFields []string
}

// Logger wraps zerolog for structured logging
type Logger struct {
	logger          zerolog.Logger
	config          LoggerConfig
	sensitiveFields map[string]bool
}

// NewLogger creates a new structured logger
func NewLogger(config LoggerConfig) *Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	if config.FilePath != "" {
		if file, err := openLogFile(config.FilePath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", config.FilePath, err)
		} else {
			output = file
		}
	}

	if config.Level == "" {
		config.Level = LevelInfo
	}

	if config.SlowQueryThreshold == 0 {
		config.SlowQueryThreshold = constants.SlowQueryThreshold
	}

	var zeroLevel zerolog.Level
	switch config.Level {
	case LevelDebug:
		zeroLevel = zerolog.DebugLevel
	case LevelWarn:
		zeroLevel = zerolog.WarnLevel
	case LevelError:
		zeroLevel = zerolog.ErrorLevel
	default:
		zeroLevel = zerolog.InfoLevel
	}

	var writer io.Writer
	switch config.Format {
	case "json":
		writer = output
	case "console":
		writer = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	default:
		writer = &simpleWriter{out: output}
	}

	ctx := zerolog.New(writer).Level(zeroLevel).With().Timestamp()
	if config.ServiceName != "" {
		ctx = ctx.Str("service", config.ServiceName)
	}
	if config.Version != "" {
		ctx = ctx.Str("version", config.Version)
	}

	sensitiveFields := make(map[string]bool)
	for _, field := range config.SensitiveFields {
		sensitiveFields[strings.ToLower(field)] = true
	}
	for _, field := range constants.SensitiveFields {
		sensitiveFields[field] = true
	}

	return &Logger{
		logger:          ctx.Logger(),
		config:          config,
		sensitiveFields: sensitiveFields,
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.FilePermissions)
}

// WithContext returns a logger carrying the request ID of ctx, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	requestID := GetRequestID(ctx)
	if requestID == "" {
		return l
	}
	newLogger := *l
	newLogger.logger = l.logger.With().Str(constants.ContextKeyRequestID, requestID).Logger()
	return &newLogger
}

// WithComponent returns a logger tagged with the emitting component
func (l *Logger) WithComponent(name string) *Logger {
	newLogger := *l
	newLogger.logger = l.logger.With().Str("component", name).Logger()
	return &newLogger
}

// WithField returns a logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	newLogger := *l
	newLogger.logger = l.logger.With().Interface(key, l.maskSensitive(key, value)).Logger()
	return &newLogger
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newLogger := *l
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, l.maskSensitive(key, value))
	}
	newLogger.logger = ctx.Logger()
	return &newLogger
}

// MaskValues returns a copy of values with sensitive keys redacted
func (l *Logger) MaskValues(values map[string]any) map[string]any {
	masked := make(map[string]any, len(values))
	for key, value := range values {
		masked[key] = l.maskSensitive(key, value)
	}
	return masked
}

func (l *Logger) maskSensitive(key string, value any) any {
	if l.sensitiveFields[strings.ToLower(key)] {
		return constants.RedactedPlaceholder
	}
	return value
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// ErrorWithErr logs an error with the error object
func (l *Logger) ErrorWithErr(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

// LogSlowQuery logs a slow query warning
func (l *Logger) LogSlowQuery(query string, duration time.Duration, args ...any) {
	if duration >= l.config.SlowQueryThreshold {
		l.logger.Warn().
			Str("query", query).
			Dur("duration", duration).
			Interface("args", args).
			Msg("Slow query detected")
	}
}

type contextKey string

const requestIDKey contextKey = constants.ContextKeyRequestID

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID gets the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger is middleware for logging HTTP requests
type RequestLogger struct {
	logger    *Logger
	skipPaths map[string]bool
}

// NewRequestLogger creates a new request logging middleware
func NewRequestLogger(logger *Logger, skipPaths ...string) *RequestLogger {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &RequestLogger{
		logger:    logger,
		skipPaths: skip,
	}
}

// Middleware returns the HTTP middleware function
func (rl *RequestLogger) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(constants.HeaderRequestID, requestID)
		r = r.WithContext(SetRequestID(r.Context(), requestID))

		if rl.skipPaths[r.URL.Path] {
			next(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(rw, r)

		event := rl.logger.logger.Info()
		if rw.statusCode >= 500 {
			event = rl.logger.logger.Error()
		} else if rw.statusCode >= 400 {
			event = rl.logger.logger.Warn()
		}

		event.
			Str(constants.ContextKeyRequestID, requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Int("bytes", rw.bytesWritten).
			Str("remote_addr", r.RemoteAddr).
			Msg("Request completed")
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

var globalLogger *Logger

// Init initializes the global logger
func Init(config LoggerConfig) {
	globalLogger = NewLogger(config)
}

// GetLogger returns the global logger
func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(LoggerConfig{
			Level:  LevelInfo,
			Format: "json",
		})
	}
	return globalLogger
}

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

// Info logs an info message using the global logger
func Info(msg string) {
	GetLogger().Info(msg)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}
