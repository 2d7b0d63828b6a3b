package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/shadowdeck/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	closed  int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }
func (s *stubScreen) Close()                                  { s.closed++ }

// swapScreen replaces itself on any update.
type swapScreen struct {
	stubScreen
	next screen.Screen
}

func (s *swapScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s.next, nil }

func TestPush(t *testing.T) {
	deck := &stubScreen{title: "deck"}
	r := New(&stubScreen{title: "home"})
	r.Push(deck)

	if r.Depth() != 2 {
		t.Errorf("depth = %d, want 2", r.Depth())
	}
	if r.Active().Title() != "deck" {
		t.Errorf("active = %q, want deck", r.Active().Title())
	}
	if !deck.initRan {
		t.Error("Init did not run on pushed screen")
	}
}

func TestPopClosesScreen(t *testing.T) {
	home := &stubScreen{title: "home"}
	deck := &stubScreen{title: "deck"}
	r := New(home)
	r.Push(deck)
	r.Update(PopScreenMsg{})

	if r.Depth() != 1 || r.Active() != home {
		t.Fatalf("after pop: depth %d, active %q", r.Depth(), r.Active().Title())
	}
	if deck.closed != 1 {
		t.Errorf("popped screen closed %d times, want 1", deck.closed)
	}
	if home.closed != 0 {
		t.Error("remaining screen was closed")
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	home := &stubScreen{title: "home"}
	r := New(home)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("depth = %d, want 1", r.Depth())
	}
	if home.closed != 0 {
		t.Error("bottom screen was closed")
	}
}

func TestReplace(t *testing.T) {
	library := &stubScreen{title: "library"}
	deck := &stubScreen{title: "deck"}
	r := New(&stubScreen{title: "home"})
	r.Push(library)
	r.Update(ReplaceScreenMsg{Screen: deck})

	if r.Depth() != 2 {
		t.Errorf("depth = %d, want 2", r.Depth())
	}
	if r.Active().Title() != "deck" {
		t.Errorf("active = %q, want deck", r.Active().Title())
	}
	if !deck.initRan {
		t.Error("Init did not run on replacement")
	}
	if library.closed != 1 {
		t.Error("replaced screen was not closed")
	}
}

func TestUpdateStoresReturnedScreen(t *testing.T) {
	next := &stubScreen{title: "next"}
	r := New(&swapScreen{stubScreen: stubScreen{title: "first"}, next: next})
	r.Update(tea.KeyPressMsg{Code: 'x'})

	if r.Active() != next {
		t.Errorf("active = %q, want next", r.Active().Title())
	}
	if got := r.View(80, 24); got != "next" {
		t.Errorf("View = %q", got)
	}
}

func TestCloseAll(t *testing.T) {
	home := &stubScreen{title: "home"}
	deck := &stubScreen{title: "deck"}
	r := New(home)
	r.Push(deck)
	r.Close()

	if home.closed != 1 || deck.closed != 1 {
		t.Errorf("closed counts: home %d, deck %d", home.closed, deck.closed)
	}
}
