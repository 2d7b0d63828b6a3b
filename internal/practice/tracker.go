// Package practice tracks one shadowing attempt per card: recording,
// uploading for scoring, and the scored result.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/abhisek/shadowdeck/internal/scoring"
	"github.com/abhisek/shadowdeck/internal/store"
)

// Status is the tracker state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRecording Status = "recording"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// ErrBusy is returned when an operation does not apply to the current status.
var ErrBusy = errors.New("practice attempt in progress")

// AttemptSink persists scored attempts.
type AttemptSink interface {
	Add(ctx context.Context, a store.PracticeAttempt) error
}

// State is a copy of the tracker state.
type State struct {
	Status Status
	CardID string
	Result scoring.Result
	Err    string
}

// Tracker drives the practice state machine for the bound card:
//
//	idle -> recording -> uploading -> done | error
//	done | error -> idle (Reset)
//
// Binding a different card cancels whatever is in flight.
type Tracker struct {
	recorder Recorder
	scorer   scoring.Scorer
	sink     AttemptSink
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     State
	recording Recording
	epoch     uint64
	onChange  func(State)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSink persists every scored attempt.
func WithSink(s AttemptSink) Option {
	return func(t *Tracker) { t.sink = s }
}

// OnChange registers a callback invoked (outside the lock) after every
// transition.
func OnChange(fn func(State)) Option {
	return func(t *Tracker) { t.onChange = fn }
}

// NewTracker creates an idle, unbound tracker.
func NewTracker(rec Recorder, scorer scoring.Scorer, opts ...Option) *Tracker {
	t := &Tracker{
		recorder: rec,
		scorer:   scorer,
		logger:   slog.Default(),
		now:      time.Now,
		state:    State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Bind associates the tracker with a card. A different id resets the
// tracker to idle and cancels any recording or pending upload.
func (t *Tracker) Bind(cardID string) {
	t.mu.Lock()
	if t.state.CardID == cardID {
		t.mu.Unlock()
		return
	}
	t.resetLocked()
	t.state.CardID = cardID
	st := t.state
	t.mu.Unlock()
	t.changed(st)
}

// Start acquires the microphone and begins recording. Acquisition
// failure moves the tracker to error and returns ErrCapabilityDenied.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state.Status != StatusIdle {
		t.mu.Unlock()
		return ErrBusy
	}
	epoch := t.epoch
	t.mu.Unlock()

	var rec Recording
	var err error
	if t.recorder == nil {
		err = &ErrCapabilityDenied{Reason: "no recorder configured"}
	} else {
		rec, err = t.recorder.Start(ctx)
	}

	t.mu.Lock()
	if epoch != t.epoch || t.state.Status != StatusIdle {
		t.mu.Unlock()
		if rec != nil {
			rec.Cancel()
		}
		return ErrBusy
	}
	if err != nil {
		var denied *ErrCapabilityDenied
		if !errors.As(err, &denied) {
			err = &ErrCapabilityDenied{Reason: err.Error(), Err: err}
		}
		t.state.Status = StatusError
		t.state.Err = err.Error()
		st := t.state
		t.mu.Unlock()
		t.changed(st)
		return err
	}
	t.recording = rec
	t.state.Status = StatusRecording
	t.state.Err = ""
	st := t.state
	t.mu.Unlock()
	t.changed(st)
	return nil
}

// Stop finalizes the recording and submits it for scoring against
// reference. It blocks until scoring finishes; the result is also
// reflected in State. Results for a card that has since been unbound
// are dropped.
func (t *Tracker) Stop(ctx context.Context, reference string) (scoring.Result, error) {
	t.mu.Lock()
	if t.state.Status != StatusRecording || t.recording == nil {
		t.mu.Unlock()
		return scoring.Result{}, ErrBusy
	}
	rec := t.recording
	t.recording = nil
	t.state.Status = StatusUploading
	epoch, cardID := t.epoch, t.state.CardID
	st := t.state
	t.mu.Unlock()
	t.changed(st)

	res, err := t.submit(ctx, rec, reference)

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		return res, err
	}
	if err != nil {
		t.state.Status = StatusError
		t.state.Err = err.Error()
	} else {
		t.state.Status = StatusDone
		t.state.Result = res
		t.state.Err = ""
	}
	st = t.state
	t.mu.Unlock()
	t.changed(st)

	if err == nil && t.sink != nil {
		a := store.PracticeAttempt{
			CardID:       cardID,
			Score:        res.Score,
			FeedbackText: res.Feedback,
			Transcript:   res.Transcript,
			CreatedAt:    t.now(),
		}
		if serr := t.sink.Add(ctx, a); serr != nil {
			t.logger.Warn("failed to record practice attempt", "card_id", cardID, "error", serr)
		}
	}
	return res, err
}

func (t *Tracker) submit(ctx context.Context, rec Recording, reference string) (scoring.Result, error) {
	path, err := rec.Stop()
	if err != nil {
		return scoring.Result{}, fmt.Errorf("finish recording: %w", err)
	}
	defer os.Remove(path)

	if t.scorer == nil {
		return scoring.Result{}, scoring.ErrUnavailable
	}
	return t.scorer.Score(ctx, path, reference)
}

// Reset returns the tracker to idle, discarding any recording and
// ignoring a pending upload.
func (t *Tracker) Reset() {
	t.mu.Lock()
	if t.state.Status == StatusIdle {
		t.mu.Unlock()
		return
	}
	t.resetLocked()
	st := t.state
	t.mu.Unlock()
	t.changed(st)
}

func (t *Tracker) resetLocked() {
	t.epoch++
	if t.recording != nil {
		t.recording.Cancel()
		t.recording = nil
	}
	t.state = State{Status: StatusIdle, CardID: t.state.CardID}
}

func (t *Tracker) changed(st State) {
	if t.onChange != nil {
		t.onChange(st)
	}
}
