// Package deck is the shadowing screen: the head card of the queue with
// its audio, furigana, and practice controls.
package deck

import (
	"context"
	"errors"
	"log/slog"
	"math"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/shadowdeck/internal/practice"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/scoring"
	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
)

// Queue is the part of queue.Manager the screen drives.
type Queue interface {
	Snapshot() queue.State
	Subscribe() (<-chan struct{}, func())
	Skip() bool
	Save(ctx context.Context) error
	SaveWithoutAdvancing(ctx context.Context) error
	ToggleDisplayForm()
	InitialLoad(ctx context.Context, level sentence.Level, speed float64) error
	RequestFreshBatch(ctx context.Context) error
	StartFreshRun(ctx context.Context, level sentence.Level, speed float64) error
	Settings() (sentence.Level, float64)
	ClearError()
}

// Practice is the part of practice.Tracker the screen drives.
type Practice interface {
	State() practice.State
	Bind(cardID string)
	Start(ctx context.Context) error
	Stop(ctx context.Context, reference string) (scoring.Result, error)
	Reset()
}

// Deps are the collaborators of the deck screen. Practice and Player
// may be nil; the matching keys then report that the feature is off.
type Deps struct {
	Queue    Queue
	Practice Practice
	Player   speech.Player
	Logger   *slog.Logger
}

const speedStep = 0.1

// Screen shows the head card.
type Screen struct {
	deps     Deps
	autoload bool

	state       queue.State
	changes     <-chan struct{}
	unsubscribe func()

	playing    bool
	cancelPlay context.CancelFunc
	flash      string
	flashErr   bool
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.Closer          = (*Screen)(nil)
)

// New creates the deck screen. With autoload set, an empty idle queue
// starts an initial load when the screen opens.
func New(deps Deps, autoload bool) *Screen {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Screen{deps: deps, autoload: autoload}
}

func (s *Screen) Title() string { return "Deck" }

func (s *Screen) Init() tea.Cmd {
	s.changes, s.unsubscribe = s.deps.Queue.Subscribe()
	s.refresh()

	cmds := []tea.Cmd{s.waitForChange()}
	if s.autoload && len(s.state.Cards) == 0 && !s.state.Loading {
		level, speed := s.deps.Queue.Settings()
		cmds = append(cmds, s.run("load", func(ctx context.Context) error {
			return s.deps.Queue.InitialLoad(ctx, level, speed)
		}))
	}
	return tea.Batch(cmds...)
}

// Close stops listening to the queue and abandons playback and any
// practice attempt.
func (s *Screen) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.cancelPlay != nil {
		s.cancelPlay()
	}
	if s.deps.Practice != nil {
		s.deps.Practice.Reset()
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case queueChangedMsg:
		s.refresh()
		return s, s.waitForChange()

	case opDoneMsg:
		s.handleOpDone(msg)
		return s, nil

	case playDoneMsg:
		s.playing = false
		s.cancelPlay = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			s.setFlash(msg.Err.Error(), true)
		}
		return s, nil

	case recordStartedMsg:
		if msg.Err != nil {
			s.setFlash(msg.Err.Error(), true)
		}
		return s, nil

	case scoredMsg:
		if msg.Err != nil && !errors.Is(msg.Err, practice.ErrBusy) {
			s.deps.Logger.Debug("practice scoring failed", "error", msg.Err)
		}
		return s, nil

	case tea.KeyMsg:
		return s, s.handleKey(msg.String())
	}
	return s, nil
}

func (s *Screen) handleKey(key string) tea.Cmd {
	s.flash = ""
	q := s.deps.Queue

	switch key {
	case "space", "n", "right":
		s.stopPlayback()
		if !q.Skip() {
			s.setFlash("Nothing to skip", false)
		}
		return nil
	case "s":
		s.stopPlayback()
		return s.run("save", q.Save)
	case "S":
		return s.run("keep", q.SaveWithoutAdvancing)
	case "t":
		q.ToggleDisplayForm()
		return nil
	case "p":
		return s.play()
	case "r":
		return s.record()
	case "f":
		level, speed := q.Settings()
		return s.freshRun(level, speed)
	case "[", "]":
		level, speed := q.Settings()
		next := speed + speedStep
		if key == "[" {
			next = speed - speedStep
		}
		next = speech.NormalizeSpeed(math.Round(next*10) / 10)
		if next == speed {
			return nil
		}
		return s.freshRun(level, next)
	case "l":
		level, speed := q.Settings()
		return s.freshRun(level.Next(), speed)
	case "R", "enter":
		if s.state.Blocked() || (len(s.state.Cards) == 0 && !s.state.Loading) {
			return s.run("retry", q.RequestFreshBatch)
		}
		return nil
	case "x":
		q.ClearError()
		return nil
	}
	return nil
}

func (s *Screen) freshRun(level sentence.Level, speed float64) tea.Cmd {
	s.stopPlayback()
	return s.run("fresh", func(ctx context.Context) error {
		return s.deps.Queue.StartFreshRun(ctx, level, speed)
	})
}

// run executes a queue operation off the UI loop. Load failures also
// land in the queue state, so opDoneMsg is only used for flashes.
func (s *Screen) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{Op: op, Err: fn(context.Background())}
	}
}

func (s *Screen) handleOpDone(msg opDoneMsg) {
	switch {
	case errors.Is(msg.Err, queue.ErrEmpty):
		s.setFlash("No card to save", false)
	case msg.Err != nil && (msg.Op == "save" || msg.Op == "keep"):
		s.setFlash("Could not save card: "+msg.Err.Error(), true)
	case msg.Err != nil:
		s.deps.Logger.Debug("queue operation failed", "op", msg.Op, "error", msg.Err)
	case msg.Op == "save":
		s.setFlash("Saved to library", false)
	case msg.Op == "keep":
		s.setFlash("Saved to library (still on this card)", false)
	}
}

func (s *Screen) play() tea.Cmd {
	head := s.state.Head()
	switch {
	case head == nil:
		return nil
	case s.deps.Player == nil:
		s.setFlash("Audio playback is not available", true)
		return nil
	case head.CurrentAudio() == nil:
		s.setFlash("No audio for this card", false)
		return nil
	}

	s.stopPlayback()
	ctx, cancel := context.WithCancel(context.Background())
	s.playing = true
	s.cancelPlay = cancel
	clip, player := head.CurrentAudio(), s.deps.Player
	return func() tea.Msg {
		defer cancel()
		return playDoneMsg{Err: player.Play(ctx, clip)}
	}
}

func (s *Screen) stopPlayback() {
	if s.cancelPlay != nil {
		s.cancelPlay()
	}
}

// record starts a practice attempt, or stops and scores the running one.
func (s *Screen) record() tea.Cmd {
	p := s.deps.Practice
	head := s.state.Head()
	if head == nil {
		return nil
	}
	if p == nil {
		s.setFlash("Practice is not available", true)
		return nil
	}

	switch p.State().Status {
	case practice.StatusRecording:
		reference := head.Text()
		return func() tea.Msg {
			res, err := p.Stop(context.Background(), reference)
			return scoredMsg{Result: res, Err: err}
		}
	case practice.StatusUploading:
		return nil
	case practice.StatusDone, practice.StatusError:
		p.Reset()
	}
	s.stopPlayback()
	return func() tea.Msg {
		return recordStartedMsg{Err: p.Start(context.Background())}
	}
}

func (s *Screen) refresh() {
	s.state = s.deps.Queue.Snapshot()
	if s.deps.Practice != nil {
		id := ""
		if head := s.state.Head(); head != nil {
			id = head.ID
		}
		s.deps.Practice.Bind(id)
	}
}

func (s *Screen) waitForChange() tea.Cmd {
	ch := s.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return queueChangedMsg{}
	}
}

func (s *Screen) setFlash(msg string, isErr bool) {
	s.flash = msg
	s.flashErr = isErr
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if len(s.state.Cards) == 0 {
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "L", Description: "Level"},
			{Key: "[ ]", Description: "Speed"},
			{Key: "Esc", Description: "Back"},
		}
	}
	rec := "Record"
	if s.deps.Practice != nil && s.deps.Practice.State().Status == practice.StatusRecording {
		rec = "Stop"
	}
	return []layout.KeyHint{
		{Key: "Space", Description: "Next"},
		{Key: "P", Description: "Play"},
		{Key: "R", Description: rec},
		{Key: "S", Description: "Save"},
		{Key: "T", Description: "Form"},
		{Key: "[ ]", Description: "Speed"},
		{Key: "L", Description: "Level"},
		{Key: "Esc", Description: "Back"},
	}
}
