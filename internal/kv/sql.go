package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// slotRow is the single table backing SQLStorage.
type slotRow struct {
	Name      string `gorm:"primaryKey;size:128"`
	Payload   []byte
	UpdatedAt time.Time
}

func (slotRow) TableName() string { return "slots" }

// SQLStorage keeps slots as rows of a relational table through gorm.
type SQLStorage struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a sqlite database file for slot storage.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("kv: get sql.DB: %w", err)
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLStorage migrates the slots table and returns the storage.
func NewSQLStorage(db *gorm.DB) (*SQLStorage, error) {
	if err := db.AutoMigrate(&slotRow{}); err != nil {
		return nil, fmt.Errorf("kv: migrate slots: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

// Get returns the slot payload or ErrNotFound.
func (s *SQLStorage) Get(ctx context.Context, slot string) ([]byte, error) {
	if slot == "" {
		return nil, ErrEmptySlot
	}
	var row slotRow
	err := s.db.WithContext(ctx).Where("name = ?", slot).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: select %s: %w", slot, err)
	}
	return row.Payload, nil
}

// Set upserts the slot row.
func (s *SQLStorage) Set(ctx context.Context, slot string, payload []byte) error {
	if slot == "" {
		return ErrEmptySlot
	}
	row := slotRow{Name: slot, Payload: payload, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("kv: upsert %s: %w", slot, err)
	}
	return nil
}
