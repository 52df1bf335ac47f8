package sqlite

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	gorm *gorm.DB
}

// NewDB opens (or creates) the SQLite database at path and migrates it.
// Pass ":memory:" for a throwaway database.
func NewDB(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)"
	}
	log.Printf("[DB] Connecting to SQLite database: %s", path)

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{gorm: gormDB}
	if err := d.autoMigrate(); err != nil {
		return nil, err
	}

	log.Printf("[DB] Database connection established successfully")
	return d, nil
}

// GormDB returns the underlying GORM DB instance
func (d *DB) GormDB() *gorm.DB {
	return d.gorm
}

func (d *DB) autoMigrate() error {
	log.Println("[DB] Running GORM auto-migration...")
	if err := d.gorm.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toTimestamp converts a time to Unix milliseconds; zero stays zero.
func toTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func toTimestampPtr(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromTimestamp(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func fromTimestampPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
