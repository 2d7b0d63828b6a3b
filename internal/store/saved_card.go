package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

var savedCardColumns = []string{
	"id", "sentence", "reading", "casual", "polite", "translation",
	"furigana_casual", "furigana_polite", "level", "created_at", "saved_at",
}

type savedCardRepo struct {
	drv *entsql.Driver
}

// Save keeps the first copy of a card; a repeated save is a no-op.
func (r *savedCardRepo) Save(ctx context.Context, card SavedCard) error {
	if card.ID == "" {
		return fmt.Errorf("save card: empty id")
	}
	now := time.Now()
	if card.SavedAt.IsZero() {
		card.SavedAt = now
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = card.SavedAt
	}
	s := card.Sentence
	level := s.Level
	if !level.Valid() {
		level = sentence.DefaultLevel
	}

	fc, err := encodeSegments(s.FuriganaCasual)
	if err != nil {
		return err
	}
	fp, err := encodeSegments(s.FuriganaPolite)
	if err != nil {
		return err
	}

	ins := builder().Insert(tableSavedCards).
		Columns(savedCardColumns...).
		Values(
			card.ID, s.Text, s.Reading, s.CasualText(), s.PoliteText(), s.Translation,
			fc, fp, string(level), toMillis(card.CreatedAt), toMillis(card.SavedAt),
		).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing())
	if _, err := exec(ctx, r.drv, ins); err != nil {
		return fmt.Errorf("save card %s: %w", card.ID, err)
	}
	return nil
}

func (r *savedCardRepo) Get(ctx context.Context, id string) (*SavedCard, error) {
	cards, err := r.scan(ctx, savedCardSelect().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("saved card %s: %w", id, ErrNotFound)
	}
	return &cards[0], nil
}

func (r *savedCardRepo) List(ctx context.Context, opts QueryOpts) ([]SavedCard, error) {
	sel := savedCardSelect().OrderBy(entsql.Desc("saved_at"), entsql.Desc("id"))
	return r.scan(ctx, paginate(sel, opts))
}

func (r *savedCardRepo) Delete(ctx context.Context, id string) error {
	n, err := exec(ctx, r.drv, builder().Delete(tableSavedCards).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete saved card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("saved card %s: %w", id, ErrNotFound)
	}
	return nil
}

func savedCardSelect() *entsql.Selector {
	return builder().Select(savedCardColumns...).From(entsql.Table(tableSavedCards))
}

func (r *savedCardRepo) scan(ctx context.Context, sel *entsql.Selector) ([]SavedCard, error) {
	rows, err := query(ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("query saved cards: %w", err)
	}
	defer rows.Close()

	var out []SavedCard
	for rows.Next() {
		var (
			c                 SavedCard
			level             string
			fc, fp            sql.NullString
			createdMs, saveMs int64
		)
		err := rows.Scan(
			&c.ID, &c.Sentence.Text, &c.Sentence.Reading, &c.Sentence.Casual,
			&c.Sentence.Polite, &c.Sentence.Translation, &fc, &fp, &level,
			&createdMs, &saveMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan saved card: %w", err)
		}
		c.Sentence.FuriganaCasual = decodeSegments(fc)
		c.Sentence.FuriganaPolite = decodeSegments(fp)
		c.Sentence.Level = sentence.LevelOrDefault(level)
		c.CreatedAt = fromMillis(createdMs)
		c.SavedAt = fromMillis(saveMs)
		out = append(out, c)
	}
	return out, rows.Err()
}
