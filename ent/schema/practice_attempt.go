package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PracticeAttempt records one scored shadowing attempt for a card.
type PracticeAttempt struct {
	ent.Schema
}

func (PracticeAttempt) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Immutable().
			Comment("attempt-<cardID>-<unix ms>"),
		field.String("card_id"),
		field.Int("score").
			Min(0).
			Max(100),
		field.Text("feedback_text").Default(""),
		field.Text("transcript").Default(""),
		field.Int64("created_at").
			Comment("unix ms"),
	}
}

func (PracticeAttempt) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("card_id"),
		index.Fields("created_at"),
	}
}
