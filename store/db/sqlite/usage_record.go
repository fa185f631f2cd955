package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/davag/ragquery/store"
)

func (d *DB) CreateUsageRecord(ctx context.Context, create *store.UsageRecord) (*store.UsageRecord, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO usage_record (created_ts, query_id, model, operation, input_tokens, output_tokens, total_tokens, estimated, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.CreatedTs,
		create.QueryID,
		create.Model,
		create.Operation,
		create.InputTokens,
		create.OutputTokens,
		create.TotalTokens,
		boolToInt(create.Estimated),
		create.CostUSD,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert usage record")
	}

	return create, nil
}

func (d *DB) ListUsageRecords(ctx context.Context, find *store.FindUsageRecord) ([]*store.UsageRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.QueryID != nil {
		where, args = append(where, "query_id = ?"), append(args, *find.QueryID)
	}
	if find.Model != nil {
		where, args = append(where, "model = ?"), append(args, *find.Model)
	}

	query := `
		SELECT id, created_ts, query_id, model, operation, input_tokens, output_tokens, total_tokens, estimated, cost_usd
		FROM usage_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list usage records")
	}
	defer rows.Close()

	list := []*store.UsageRecord{}
	for rows.Next() {
		var rec store.UsageRecord
		var estimated int
		if err := rows.Scan(
			&rec.ID,
			&rec.CreatedTs,
			&rec.QueryID,
			&rec.Model,
			&rec.Operation,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.TotalTokens,
			&estimated,
			&rec.CostUSD,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan usage record")
		}
		rec.Estimated = estimated != 0
		list = append(list, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
