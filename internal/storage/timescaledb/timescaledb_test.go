package timescaledb

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewStorageClosesPoolOnSetupFailure(t *testing.T) {
	// nothing listens on port 1, so the first statement fails
	dsn := "host=127.0.0.1 port=1 user=icemass dbname=glacier sslmode=disable connect_timeout=1"
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s, err := newStorage(ctx, db, nil); err == nil {
		s.Close()
		t.Fatalf("expected setup to fail without a server")
	}

	err = sqlDB.PingContext(ctx)
	if err == nil || !strings.Contains(err.Error(), "database is closed") {
		t.Errorf("Ping after failed setup = %v, expected the pool to be closed", err)
	}
}
