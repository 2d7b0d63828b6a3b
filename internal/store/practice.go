package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type practiceRepo struct {
	drv *entsql.Driver
}

func (r *practiceRepo) Add(ctx context.Context, a PracticeAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.ID == "" {
		a.ID = fmt.Sprintf("attempt-%s-%d", a.CardID, toMillis(a.CreatedAt))
	}
	a.Score = min(max(a.Score, 0), 100)

	ins := builder().Insert(tablePracticeAttempts).
		Columns("id", "card_id", "score", "feedback_text", "transcript", "created_at").
		Values(a.ID, a.CardID, a.Score, a.FeedbackText, a.Transcript, toMillis(a.CreatedAt))
	if _, err := exec(ctx, r.drv, ins); err != nil {
		return fmt.Errorf("add practice attempt: %w", err)
	}
	return nil
}

func (r *practiceRepo) ForCard(ctx context.Context, cardID string, opts QueryOpts) ([]PracticeAttempt, error) {
	sel := builder().Select("id", "card_id", "score", "feedback_text", "transcript", "created_at").
		From(entsql.Table(tablePracticeAttempts)).
		Where(entsql.EQ("card_id", cardID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	rows, err := query(ctx, r.drv, paginate(sel, opts))
	if err != nil {
		return nil, fmt.Errorf("query practice attempts: %w", err)
	}
	defer rows.Close()

	var out []PracticeAttempt
	for rows.Next() {
		var (
			a  PracticeAttempt
			ms int64
		)
		if err := rows.Scan(&a.ID, &a.CardID, &a.Score, &a.FeedbackText, &a.Transcript, &ms); err != nil {
			return nil, fmt.Errorf("scan practice attempt: %w", err)
		}
		a.CreatedAt = fromMillis(ms)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *practiceRepo) BestScore(ctx context.Context, cardID string) (int, bool, error) {
	sel := builder().Select(entsql.Max("score")).
		From(entsql.Table(tablePracticeAttempts)).
		Where(entsql.EQ("card_id", cardID))
	rows, err := query(ctx, r.drv, sel)
	if err != nil {
		return 0, false, fmt.Errorf("best score: %w", err)
	}
	defer rows.Close()

	var best sql.NullInt64
	if rows.Next() {
		if err := rows.Scan(&best); err != nil {
			return 0, false, fmt.Errorf("scan best score: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false, err
	}
	return int(best.Int64), best.Valid, nil
}
