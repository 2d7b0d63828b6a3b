package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

// querier is implemented by the builder types.
type querier interface {
	Query() (string, []any)
}

func query(ctx context.Context, drv *entsql.Driver, q querier) (*entsql.Rows, error) {
	stmt, args := q.Query()
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, stmt, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func exec(ctx context.Context, drv *entsql.Driver, q querier) (int64, error) {
	stmt, args := q.Query()
	var res sql.Result
	if err := drv.Exec(ctx, stmt, args, &res); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// count runs a COUNT(*) selector and returns the single value.
func count(ctx context.Context, drv *entsql.Driver, q querier) (int, error) {
	rows, err := query(ctx, drv, q)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func paginate(sel *entsql.Selector, opts QueryOpts) *entsql.Selector {
	switch {
	case opts.Limit > 0:
		sel.Limit(opts.Limit)
	case opts.Offset > 0:
		sel.Limit(-1)
	}
	if opts.Offset > 0 {
		sel.Offset(opts.Offset)
	}
	return sel
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// encodeSegments stores furigana as JSON; nil segments are stored as NULL.
func encodeSegments(segs []sentence.FuriganaSegment) (any, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(segs)
	if err != nil {
		return nil, fmt.Errorf("encode furigana: %w", err)
	}
	return string(b), nil
}

func decodeSegments(v sql.NullString) []sentence.FuriganaSegment {
	if !v.Valid || v.String == "" {
		return nil
	}
	var segs []sentence.FuriganaSegment
	if err := json.Unmarshal([]byte(v.String), &segs); err != nil {
		return nil
	}
	return segs
}
