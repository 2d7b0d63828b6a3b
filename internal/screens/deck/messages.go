package deck

import "github.com/abhisek/shadowdeck/internal/scoring"

// queueChangedMsg is sent after every queue state change.
type queueChangedMsg struct{}

// opDoneMsg reports the outcome of a queue operation run off the UI loop.
type opDoneMsg struct {
	Op  string
	Err error
}

// playDoneMsg is sent when playback finishes or fails.
type playDoneMsg struct {
	Err error
}

// recordStartedMsg is sent once the microphone is acquired (or not).
type recordStartedMsg struct {
	Err error
}

// scoredMsg carries a scored practice attempt.
type scoredMsg struct {
	Result scoring.Result
	Err    error
}
