// Package screen defines the contract between the router and the
// individual TUI screens.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/shadowdeck/internal/ui/layout"
)

// Screen is one page of the TUI.
type Screen interface {
	// Init returns the command to run when the screen becomes active.
	Init() tea.Cmd

	// Update handles messages and returns the (possibly replaced) screen.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// InputCapturer is implemented by screens with a focused text field.
// While CapturesInput is true the app forwards every key, esc and q
// included, to the screen instead of navigating.
type InputCapturer interface {
	CapturesInput() bool
}

// Closer is implemented by screens that hold subscriptions or other
// resources. The router calls Close when the screen leaves the stack.
type Closer interface {
	Close()
}
