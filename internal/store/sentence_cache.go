package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

var cachedSentenceColumns = []string{
	"id", "level", "sentence", "reading", "casual", "polite", "translation",
	"furigana_casual", "furigana_polite", "sequence", "created_at", "used_at",
}

type sentenceCacheRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *sentenceCacheRepo) ListByLevel(ctx context.Context, level sentence.Level) ([]CachedSentence, error) {
	sel := builder().Select(cachedSentenceColumns...).
		From(entsql.Table(tableCachedSentences)).
		Where(entsql.EQ("level", string(level))).
		OrderBy("sequence")
	rows, err := query(ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("query cached sentences: %w", err)
	}
	defer rows.Close()

	var out []CachedSentence
	for rows.Next() {
		var (
			c         CachedSentence
			level     string
			fc, fp    sql.NullString
			createdMs int64
			usedMs    sql.NullInt64
		)
		s := &c.Sentence
		err := rows.Scan(
			&c.ID, &level, &s.Text, &s.Reading, &s.Casual, &s.Polite, &s.Translation,
			&fc, &fp, &c.Sequence, &createdMs, &usedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cached sentence: %w", err)
		}
		c.Level = sentence.LevelOrDefault(level)
		s.Level = c.Level
		s.FuriganaCasual = decodeSegments(fc)
		s.FuriganaPolite = decodeSegments(fp)
		c.CreatedAt = fromMillis(createdMs)
		if usedMs.Valid {
			t := fromMillis(usedMs.Int64)
			c.UsedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *sentenceCacheRepo) Texts(ctx context.Context, level sentence.Level) (map[string]bool, error) {
	sel := builder().Select("sentence").
		From(entsql.Table(tableCachedSentences)).
		Where(entsql.EQ("level", string(level)))
	rows, err := query(ctx, r.drv, sel)
	if err != nil {
		return nil, fmt.Errorf("query cached texts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan cached text: %w", err)
		}
		out[s] = true
	}
	return out, rows.Err()
}

// Insert writes all entries in one statement. Rows that collide with an
// existing (level, sentence) pair are skipped by the database.
func (r *sentenceCacheRepo) Insert(ctx context.Context, entries []CachedSentence) ([]CachedSentence, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	first, err := r.seq.Reserve(ctx, len(entries))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ins := builder().Insert(tableCachedSentences).Columns(cachedSentenceColumns...)
	out := make([]CachedSentence, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Sequence == 0 {
			e.Sequence = first + int64(i)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.Sentence.Level = e.Level

		fc, err := encodeSegments(e.Sentence.FuriganaCasual)
		if err != nil {
			return nil, err
		}
		fp, err := encodeSegments(e.Sentence.FuriganaPolite)
		if err != nil {
			return nil, err
		}
		var used any
		if e.UsedAt != nil {
			used = toMillis(*e.UsedAt)
		}
		s := e.Sentence
		ins.Values(
			e.ID, string(e.Level), s.Text, s.Reading, s.Casual, s.Polite, s.Translation,
			fc, fp, e.Sequence, toMillis(e.CreatedAt), used,
		)
		out[i] = e
	}
	ins.OnConflict(entsql.ConflictColumns("level", "sentence"), entsql.DoNothing())

	if _, err := exec(ctx, r.drv, ins); err != nil {
		return nil, fmt.Errorf("insert cached sentences: %w", err)
	}
	return out, nil
}

func (r *sentenceCacheRepo) MarkUsed(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	upd := builder().Update(tableCachedSentences).
		Set("used_at", toMillis(at)).
		Where(entsql.In("id", stringArgs(ids)...))
	if _, err := exec(ctx, r.drv, upd); err != nil {
		return fmt.Errorf("mark cached sentences used: %w", err)
	}
	return nil
}

func (r *sentenceCacheRepo) DeleteIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	del := builder().Delete(tableCachedSentences).Where(entsql.In("id", stringArgs(ids)...))
	n, err := exec(ctx, r.drv, del)
	if err != nil {
		return 0, fmt.Errorf("delete cached sentences: %w", err)
	}
	return int(n), nil
}

func (r *sentenceCacheRepo) DeleteLevel(ctx context.Context, level sentence.Level) (int, error) {
	del := builder().Delete(tableCachedSentences)
	if level != "" {
		del.Where(entsql.EQ("level", string(level)))
	}
	n, err := exec(ctx, r.drv, del)
	if err != nil {
		return 0, fmt.Errorf("clear cached sentences: %w", err)
	}
	return int(n), nil
}

func (r *sentenceCacheRepo) CountByLevel(ctx context.Context, level sentence.Level) (int, error) {
	sel := builder().Select(entsql.Count("*")).
		From(entsql.Table(tableCachedSentences)).
		Where(entsql.EQ("level", string(level)))
	n, err := count(ctx, r.drv, sel)
	if err != nil {
		return 0, fmt.Errorf("count cached sentences: %w", err)
	}
	return n, nil
}
