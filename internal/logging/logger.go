package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"sessioncore/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with component tagging and session-domain helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// Field represents a single structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// Log levels, re-exported so callers don't need to import logrus directly.
const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
	PanicLevel = logrus.PanicLevel
)

var globalLogger *Logger

// NewLogger builds a logger from a LoggingConfig (see internal/config).
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		output = createFileWriter(cfg)
	case "both":
		output = io.MultiWriter(os.Stdout, createFileWriter(cfg))
	default:
		output = os.Stdout
	}
	logger.SetOutput(output)

	return &Logger{Logger: logger}
}

func createFileWriter(cfg config.LoggingConfig) io.Writer {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		fmt.Printf("Warning: failed to create log directory: %v\n", err)
		return os.Stdout
	}
	logFile := filepath.Join(cfg.Directory, "session.log")
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// InitGlobalLogger initializes the package-level default logger.
func InitGlobalLogger(cfg config.LoggingConfig) {
	globalLogger = NewLogger(cfg)
}

func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	}
	return globalLogger
}

// NewComponentLogger tags every entry emitted through it with component.
func NewComponentLogger(component string) *Logger {
	base := GetGlobalLogger()
	return &Logger{Logger: base.Logger, component: component}
}

func (l *Logger) Debug(args ...interface{}) { l.withComponent().Logger.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.withComponent().Logger.Debugf(format, args...)
}
func (l *Logger) Info(args ...interface{}) { l.withComponent().Logger.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.withComponent().Logger.Infof(format, args...)
}
func (l *Logger) Warn(args ...interface{}) { l.withComponent().Logger.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.withComponent().Logger.Warnf(format, args...)
}
func (l *Logger) Error(args ...interface{}) { l.withComponent().Logger.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.withComponent().Logger.Errorf(format, args...)
}
func (l *Logger) Fatal(args ...interface{}) { l.withComponent().Logger.Fatal(args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.withComponent().Logger.Fatalf(format, args...)
}

// withComponent returns a *logrus.Entry-backed Logger with the component
// field attached, or l itself when there's no component to tag.
func (l *Logger) withComponent() *Logger {
	if l.component == "" {
		return l
	}
	return l.WithField("component", l.component)
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Logger: l.Logger.WithFields(fields).Logger, component: l.component}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Logger: l.Logger.WithField(key, value).Logger, component: l.component}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.WithError(err).Logger, component: l.component}
}

func (l *Logger) WithCaller() *Logger {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return l
	}
	return l.WithFields(logrus.Fields{"file": file, "line": line})
}

// Session-domain logging helpers, scoped to this core's event vocabulary.

// LogZone logs decision-zone formation.
func (l *Logger) LogZone(symbol string, status string, support, resistance int64) {
	l.WithFields(logrus.Fields{
		"event":      "zone_defined",
		"symbol":     symbol,
		"status":     status,
		"support":    support,
		"resistance": resistance,
	}).Info("Decision zone evaluated")
}

// LogSignal logs a strategy signal (BREAK/RETEST/CONFIRMATION/BREAK_FAILURE).
func (l *Logger) LogSignal(symbol string, signalType string, direction string, price int64, attemptNumber int) {
	l.WithFields(logrus.Fields{
		"event":          "strategy_signal",
		"symbol":         symbol,
		"signal_type":    signalType,
		"direction":      direction,
		"price":          price,
		"attempt_number": attemptNumber,
	}).Info("Strategy signal")
}

// LogTradeExit logs a trade's terminal outcome.
func (l *Logger) LogTradeExit(symbol string, result string, realizedR float64, barsHeld int) {
	l.WithFields(logrus.Fields{
		"event":      "trade_exit",
		"symbol":     symbol,
		"result":     result,
		"realized_r": realizedR,
		"bars_held":  barsHeld,
	}).Info("Trade closed")
}

// LogPacingWait logs an admission wait incurred by the pacing manager.
func (l *Logger) LogPacingWait(contractID string, waitMs int64) {
	l.WithFields(logrus.Fields{
		"event":       "pacing_wait",
		"contract_id": contractID,
		"wait_ms":     waitMs,
	}).Debug("Pacing admission delayed")
}

// LogError logs an error with additional context fields.
func (l *Logger) LogError(operation string, err error, context map[string]interface{}) {
	fields := logrus.Fields{"event": "error", "operation": operation, "error": err.Error()}
	for k, v := range context {
		fields[k] = v
	}
	l.WithFields(fields).Error("Operation failed")
}

// Global convenience functions, for code with no injected logger (cmd/ glue).

func Debug(args ...interface{}) { GetGlobalLogger().Debug(args...) }
func Info(args ...interface{})  { GetGlobalLogger().Info(args...) }
func Warn(args ...interface{})  { GetGlobalLogger().Warn(args...) }
func Error(args ...interface{}) { GetGlobalLogger().Error(args...) }

func WithFields(fields map[string]interface{}) *Logger { return GetGlobalLogger().WithFields(fields) }
func WithField(key string, value interface{}) *Logger  { return GetGlobalLogger().WithField(key, value) }
func WithError(err error) *Logger                      { return GetGlobalLogger().WithError(err) }

func CreateStrategyLogger() *Logger { return NewComponentLogger("strategy") }
func CreateRunnerLogger() *Logger   { return NewComponentLogger("runner") }
func CreatePacingLogger() *Logger   { return NewComponentLogger("pacing") }
