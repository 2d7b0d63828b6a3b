package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

// CachedSentence is a generated sentence kept locally per level.
type CachedSentence struct {
	ent.Schema
}

func (CachedSentence) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable(),
		field.String("level"),
		field.Text("sentence"),
		field.Text("reading").Default(""),
		field.Text("casual").Default(""),
		field.Text("polite").Default(""),
		field.Text("translation").Default(""),
		field.JSON("furigana_casual", []sentence.FuriganaSegment{}).
			Optional(),
		field.JSON("furigana_polite", []sentence.FuriganaSegment{}).
			Optional(),
		field.Int64("sequence").
			Immutable().
			Comment("Global insertion order; eviction tie-break"),
		field.Int64("created_at").
			Immutable().
			Comment("unix ms"),
		field.Int64("used_at").
			Optional().
			Nillable().
			Comment("unix ms of the last draw into a batch; null if never used"),
	}
}

func (CachedSentence) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("level", "sentence").
			Unique(),
		index.Fields("level", "used_at"),
	}
}
