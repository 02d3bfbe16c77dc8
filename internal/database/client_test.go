package database

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestNewGormLoggerWithoutLogger(t *testing.T) {
	l := NewGormLogger(nil)
	if l == nil {
		t.Fatalf("NewGormLogger returned nil")
	}
	// must not panic with the no-op logger underneath
	l.Warn(context.Background(), "slow query %s", "SELECT 1")
	l.Trace(context.Background(), time.Now().Add(-2*time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	if quiet := l.LogMode(logger.Silent); quiet == nil {
		t.Errorf("LogMode returned nil")
	}
}
