package queue

import (
	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/sentence"
)

// State is a point-in-time copy of the queue for presentation layers.
type State struct {
	// Cards are copies, but their clips are shared with the queue. A
	// clip is valid only while its card is queued: once the card is
	// skipped, saved or advanced past, Open fails with
	// speech.ErrReleased. Finish or stop playback before consuming.
	Cards     []card.Card
	Loading   bool
	Progress  int
	Err       string
	Consumed  int
	HeadSaved bool
	Refilling bool
	Level     sentence.Level
	Speed     float64
}

// Head returns the card on display, or nil.
func (s State) Head() *card.Card {
	if len(s.Cards) == 0 {
		return nil
	}
	return &s.Cards[0]
}

// Blocked reports an error with nothing to show: the presentation
// should offer a retry instead of a card.
func (s State) Blocked() bool {
	return s.Err != "" && len(s.Cards) == 0
}

// Snapshot copies the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Cards:     make([]card.Card, len(m.cards)),
		Loading:   m.loading,
		Progress:  m.progress,
		Err:       m.errMsg,
		Consumed:  m.consumed,
		Refilling: m.refilling.Load(),
		Level:     m.level,
		Speed:     m.speed,
	}
	for i, c := range m.cards {
		st.Cards[i] = *c
	}
	if len(m.cards) > 0 {
		st.HeadSaved = m.savedIDs[m.cards[0].ID]
	}
	return st
}

// Subscribe returns a channel that receives a signal after every state
// change, and a function to stop listening. Signals coalesce: a slow
// reader sees one pending signal, then reads Snapshot.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	m.subs[ch] = struct{}{}
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
}

func (m *Manager) notifyLocked() {
	for ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
