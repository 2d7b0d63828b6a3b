package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

// SavedCard is a durable copy of a card the learner kept. Audio is not
// stored; it is re-synthesized when the card is loaded again.
type SavedCard struct {
	ent.Schema
}

func (SavedCard) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable().
			Comment("Card ID at the time it was saved"),
		field.Text("sentence"),
		field.Text("reading").Default(""),
		field.Text("casual"),
		field.Text("polite"),
		field.Text("translation").Default(""),
		field.JSON("furigana_casual", []sentence.FuriganaSegment{}).
			Optional(),
		field.JSON("furigana_polite", []sentence.FuriganaSegment{}).
			Optional(),
		field.String("level").
			Default(string(sentence.DefaultLevel)),
		field.Int64("created_at").
			Comment("unix ms"),
		field.Int64("saved_at").
			Comment("unix ms"),
	}
}

func (SavedCard) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("saved_at"),
	}
}
