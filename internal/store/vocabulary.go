package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type vocabularyRepo struct {
	drv *entsql.Driver
}

func (r *vocabularyRepo) Add(ctx context.Context, item VocabularyItem) (VocabularyItem, error) {
	item.Word = strings.TrimSpace(item.Word)
	item.Reading = strings.TrimSpace(item.Reading)
	if item.Word == "" {
		return VocabularyItem{}, fmt.Errorf("add vocabulary: empty word")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	ins := builder().Insert(tableVocabulary).
		Columns("id", "word", "reading", "created_at").
		Values(item.ID, item.Word, item.Reading, toMillis(item.CreatedAt)).
		OnConflict(entsql.ConflictColumns("word"), entsql.DoNothing())
	if _, err := exec(ctx, r.drv, ins); err != nil {
		return VocabularyItem{}, fmt.Errorf("add vocabulary: %w", err)
	}

	sel := vocabularySelect().Where(entsql.EQ("word", item.Word))
	items, err := r.scan(ctx, sel)
	if err != nil {
		return VocabularyItem{}, err
	}
	if len(items) == 0 {
		return VocabularyItem{}, fmt.Errorf("add vocabulary %q: %w", item.Word, ErrNotFound)
	}
	return items[0], nil
}

func (r *vocabularyRepo) List(ctx context.Context) ([]VocabularyItem, error) {
	return r.scan(ctx, vocabularySelect().OrderBy("created_at", "word"))
}

func (r *vocabularyRepo) Words(ctx context.Context) ([]string, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(items))
	for i, it := range items {
		words[i] = it.Word
	}
	return words, nil
}

func (r *vocabularyRepo) Delete(ctx context.Context, idOrWord string) error {
	del := builder().Delete(tableVocabulary).
		Where(entsql.Or(entsql.EQ("id", idOrWord), entsql.EQ("word", idOrWord)))
	n, err := exec(ctx, r.drv, del)
	if err != nil {
		return fmt.Errorf("delete vocabulary: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vocabulary %q: %w", idOrWord, ErrNotFound)
	}
	return nil
}

func (r *vocabularyRepo) Count(ctx context.Context) (int, error) {
	sel := builder().Select(entsql.Count("*")).From(entsql.Table(tableVocabulary))
	n, err := count(ctx, r.drv, sel)
	if err != nil {
		return 0, fmt.Errorf("count vocabulary: %w", err)
	}
	return n, nil
}

func vocabularySelect() *entsql.Selector {
	return builder().Select("id", "word", "reading", "created_at").
		From(entsql.Table(tableVocabulary))
}

func (r *vocabularyRepo) scan(ctx context.Context, sel *entsql.Selector) ([]VocabularyItem, error) {
	rows, err := query(ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("query vocabulary: %w", err)
	}
	defer rows.Close()

	var out []VocabularyItem
	for rows.Next() {
		var (
			it VocabularyItem
			ms int64
		)
		if err := rows.Scan(&it.ID, &it.Word, &it.Reading, &ms); err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		it.CreatedAt = fromMillis(ms)
		out = append(out, it)
	}
	return out, rows.Err()
}
