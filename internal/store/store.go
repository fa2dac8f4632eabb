// Package store persists market data in PostgreSQL through gorm. Writes are
// duplicate-safe: a unique key per table decides what already exists.
package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store is the relational market data store.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying gorm.DB instance.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Migrate creates the tables and their unique keys if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&MarketDataRow{}, &EconomicIndicatorRow{}); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

// Ping checks the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
