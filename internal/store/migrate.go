package store

import (
	"context"
	"fmt"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/abhisek/shadowdeck/ent/schema"
)

// Table names.
const (
	tableVocabulary       = "vocabulary_items"
	tableSavedCards       = "saved_cards"
	tablePracticeAttempts = "practice_attempts"
	tableCachedSentences  = "cached_sentences"
	tableLLMEvents        = "llm_request_events"
)

// entities maps each table to its declaration in ent/schema.
var entities = []struct {
	table  string
	schema ent.Interface
}{
	{tableVocabulary, entschema.VocabularyItem{}},
	{tableSavedCards, entschema.SavedCard{}},
	{tablePracticeAttempts, entschema.PracticeAttempt{}},
	{tableCachedSentences, entschema.CachedSentence{}},
	{tableLLMEvents, entschema.LLMRequestEvent{}},
}

// migrate creates or extends all tables in append-only mode.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv, schema.WithForeignKeys(false))
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	return m.Create(ctx, tables...)
}

// Tables builds the SQL table definitions from the ent schema
// declarations. Schemas without an explicit "id" field get an
// auto-increment integer key, matching ent's default.
func Tables() ([]*schema.Table, error) {
	out := make([]*schema.Table, 0, len(entities))
	for _, e := range entities {
		t, err := tableFor(e.table, e.schema)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", e.table, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func tableFor(name string, s ent.Interface) (*schema.Table, error) {
	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	t := schema.NewTable(name)
	hasID := false
	for _, f := range fields {
		if f.Descriptor().Name == "id" {
			hasID = true
		}
	}
	if !hasID {
		t.AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	}

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("field %s: %w", d.Name, d.Err)
		}
		col := &schema.Column{
			Name:     columnName(d),
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Nullable: d.Optional,
			Unique:   d.Unique,
			Comment:  d.Comment,
			Default:  staticDefault(d.Default),
		}
		if d.Name == "id" {
			t.AddPrimary(col)
			continue
		}
		t.AddColumn(col)
	}

	for _, idx := range indexes {
		d := idx.Descriptor()
		cols := make([]string, len(d.Fields))
		copy(cols, d.Fields)
		t.AddIndex(indexName(name, d.StorageKey, cols), d.Unique, cols)
	}
	return t, nil
}

func columnName(d *field.Descriptor) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

func indexName(table, key string, cols []string) string {
	if key != "" {
		return key
	}
	name := table
	for _, c := range cols {
		name += "_" + c
	}
	return name
}

// staticDefault keeps literal defaults; function defaults are applied
// by the repositories at insert time.
func staticDefault(v any) any {
	switch v.(type) {
	case string, bool, int, int64, float64:
		return v
	}
	return nil
}
