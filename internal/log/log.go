// Package log provides the process-wide zap logger used by the simulation
// binaries and the packages they drive.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init builds the package-level logger. Debug mode uses zap's development
// config (console encoder, debug level); otherwise the JSON production config.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

func ensure() {
	if log == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
}

// GetZapLogger returns the base zap logger, e.g. for bridging into GORM's logger.
func GetZapLogger() *zap.Logger {
	ensure()
	return baseLogger
}

// GetSugaredLogger returns the sugared logger handed to components.
func GetSugaredLogger() *zap.SugaredLogger {
	ensure()
	return log.WithOptions(zap.AddCallerSkip(-1))
}

// OrNop returns l, or a no-op logger when l is nil. Constructors use it so
// callers (mostly tests) may pass a nil logger.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debugf(template string, args ...interface{}) {
	ensure()
	log.Debugf(template, args...)
}

func Info(args ...interface{}) {
	ensure()
	log.Info(args...)
}

func Infof(template string, args ...interface{}) {
	ensure()
	log.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	ensure()
	log.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	ensure()
	log.Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	ensure()
	log.Fatalf(template, args...)
	os.Exit(1)
}
