package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// VocabularyItem is a word the learner wants to see in generated sentences.
type VocabularyItem struct {
	ent.Schema
}

func (VocabularyItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable(),
		field.String("word").
			NotEmpty().
			Unique(),
		field.String("reading").
			Default(""),
		field.Int64("created_at").
			Immutable().
			Comment("unix ms"),
	}
}

func (VocabularyItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("created_at"),
	}
}
