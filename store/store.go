// Package store provides persistence for query usage records, the
// durable backend of the cost-tracking sink.
package store

import (
	"context"
	"database/sql"

	"github.com/davag/ragquery/internal/profile"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	CreateUsageRecord(ctx context.Context, create *UsageRecord) (*UsageRecord, error)
	ListUsageRecords(ctx context.Context, find *FindUsageRecord) ([]*UsageRecord, error)
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateUsageRecord(ctx context.Context, create *UsageRecord) (*UsageRecord, error) {
	return s.driver.CreateUsageRecord(ctx, create)
}

func (s *Store) ListUsageRecords(ctx context.Context, find *FindUsageRecord) ([]*UsageRecord, error) {
	return s.driver.ListUsageRecords(ctx, find)
}
