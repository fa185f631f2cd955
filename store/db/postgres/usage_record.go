package postgres

import (
	"context"
	"fmt"
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.CreatedTs,
		create.QueryID,
		create.Model,
		create.Operation,
		create.InputTokens,
		create.OutputTokens,
		create.TotalTokens,
		create.Estimated,
		create.CostUSD,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert usage record")
	}

	return create, nil
}

func (d *DB) ListUsageRecords(ctx context.Context, find *store.FindUsageRecord) ([]*store.UsageRecord, error) {
	where, args := []string{"TRUE"}, []any{}
	if find.QueryID != nil {
		args = append(args, *find.QueryID)
		where = append(where, fmt.Sprintf("query_id = $%d", len(args)))
	}
	if find.Model != nil {
		args = append(args, *find.Model)
		where = append(where, fmt.Sprintf("model = $%d", len(args)))
	}

	query := `
		SELECT id, created_ts, query_id, model, operation, input_tokens, output_tokens, total_tokens, estimated, cost_usd
		FROM usage_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list usage records")
	}
	defer rows.Close()

	list := []*store.UsageRecord{}
	for rows.Next() {
		var rec store.UsageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.CreatedTs,
			&rec.QueryID,
			&rec.Model,
			&rec.Operation,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.TotalTokens,
			&rec.Estimated,
			&rec.CostUSD,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan usage record")
		}
		list = append(list, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
