package postgres

import (
	"context"
	"database/sql"

	// Import the Postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/davag/ragquery/internal/profile"
	"github.com/davag/ragquery/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a Postgres connection using the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: postgresDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS usage_record (
	id BIGSERIAL PRIMARY KEY,
	created_ts BIGINT NOT NULL DEFAULT extract(epoch from now()),
	query_id TEXT NOT NULL,
	model TEXT NOT NULL,
	operation TEXT NOT NULL DEFAULT 'query',
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	estimated BOOLEAN NOT NULL DEFAULT FALSE,
	cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_usage_record_query_id ON usage_record (query_id);
CREATE INDEX IF NOT EXISTS idx_usage_record_model ON usage_record (model);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate usage_record schema")
	}
	return nil
}
