// Package queue owns the ordered card queue: initial loads, background
// refills, consumption, and the snapshot presentation layers render.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/generation"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/store"
)

// Mixer supplies sentence batches.
type Mixer interface {
	FetchBatch(ctx context.Context, level sentence.Level, count int) ([]sentence.Sentence, error)
}

// Builder turns sentences into cards with audio.
type Builder interface {
	Build(ctx context.Context, s sentence.Sentence, speed float64, level sentence.Level) *card.Card
	BuildWithID(ctx context.Context, id string, s sentence.Sentence, speed float64, level sentence.Level) *card.Card
}

// Library persists saved cards.
type Library interface {
	Save(ctx context.Context, c store.SavedCard) error
	Get(ctx context.Context, id string) (*store.SavedCard, error)
}

// User-visible messages.
const (
	msgNoCards     = "Could not build any cards. Try again."
	msgQueueEmpty  = "no card to act on"
	msgCardMissing = "Saved card not found."
)

// ErrEmpty is returned by operations that need a head card.
var ErrEmpty = errors.New(msgQueueEmpty)

// Manager owns the card queue. All queue mutations happen under mu and
// apply to the state current at that moment; network work runs outside
// the lock. Results of a load are discarded when a newer load has
// started since (tracked by generation).
type Manager struct {
	mixer   Mixer
	builder Builder
	library Library
	config  Config
	logger  *slog.Logger
	now     func() time.Time

	// refilling admits at most one maintain pass at a time.
	refilling atomic.Bool

	mu         sync.Mutex
	cards      []*card.Card
	loading    bool
	progress   int
	errMsg     string
	consumed   int
	generation uint64
	savedIDs   map[string]bool
	level      sentence.Level
	speed      float64
	closed     bool
	subs       map[chan struct{}]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now for saved-card timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSettings sets the level and speed used before the first load.
func WithSettings(level sentence.Level, speed float64) Option {
	return func(m *Manager) {
		m.level = level
		m.speed = speed
	}
}

// New creates a Manager. library may be nil, in which case saving fails.
func New(mixer Mixer, builder Builder, library Library, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = def.TargetSize
	}
	if cfg.RefillThreshold < 0 || cfg.RefillThreshold >= cfg.TargetSize {
		cfg.RefillThreshold = min(def.RefillThreshold, cfg.TargetSize-1)
	}
	if cfg.BuildConcurrency <= 0 {
		cfg.BuildConcurrency = def.BuildConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		mixer:    mixer,
		builder:  builder,
		library:  library,
		config:   cfg,
		logger:   slog.Default(),
		now:      time.Now,
		savedIDs: make(map[string]bool),
		level:    sentence.DefaultLevel,
		speed:    speech.DefaultSpeed,
		subs:     make(map[chan struct{}]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.config }

// InitialLoad replaces the queue with a fresh batch. The queue is
// cleared immediately; progress climbs from 0 to 100 as cards finish
// building. If the load outlives LoadTimeout the error field shows a
// timeout hint, but the load continues and still installs its cards.
// An empty batch leaves the queue empty without an error.
func (m *Manager) InitialLoad(ctx context.Context, level sentence.Level, speed float64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errClosed
	}
	m.generation++
	gen := m.generation
	m.releaseAllLocked()
	m.cards = nil
	m.consumed = 0
	m.loading = true
	m.progress = 0
	m.errMsg = ""
	m.level, m.speed = level, speed
	m.notifyLocked()
	m.mu.Unlock()

	if m.config.LoadTimeout > 0 {
		timer := time.AfterFunc(m.config.LoadTimeout, func() { m.loadTimedOut(gen) })
		defer timer.Stop()
	}

	built, err := m.loadBatch(ctx, gen, level, speed, m.config.TargetSize, true)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.closed {
		releaseCards(built)
		return nil
	}
	m.loading = false
	switch {
	case err != nil:
		m.errMsg = generation.UserMessage(err)
		m.notifyLocked()
		return err
	case built == nil:
		// Both sources empty: nothing to show, not an error.
		m.errMsg = ""
		m.notifyLocked()
		return nil
	case len(built) == 0:
		m.errMsg = msgNoCards
		m.notifyLocked()
		return errors.New(msgNoCards)
	}
	prev := len(m.cards)
	m.cards = built
	m.progress = 100
	m.errMsg = ""
	m.afterLengthChangeLocked(prev)
	m.notifyLocked()
	return nil
}

// RequestFreshBatch is the retry for an empty queue: an InitialLoad with
// the current settings.
func (m *Manager) RequestFreshBatch(ctx context.Context) error {
	level, speed := m.Settings()
	return m.InitialLoad(ctx, level, speed)
}

// StartFreshRun loads a new batch like InitialLoad but keeps the current
// cards visible until the new ones are ready. The consumption counter
// resets when the new batch is installed. On failure the prior queue
// stays in place.
func (m *Manager) StartFreshRun(ctx context.Context, level sentence.Level, speed float64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errClosed
	}
	m.generation++
	gen := m.generation
	m.loading = true
	m.progress = 0
	m.errMsg = ""
	m.level, m.speed = level, speed
	m.notifyLocked()
	m.mu.Unlock()

	if m.config.LoadTimeout > 0 {
		timer := time.AfterFunc(m.config.LoadTimeout, func() { m.loadTimedOut(gen) })
		defer timer.Stop()
	}

	built, err := m.loadBatch(ctx, gen, level, speed, m.config.TargetSize, true)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.closed {
		releaseCards(built)
		return nil
	}
	m.loading = false
	if err != nil {
		m.errMsg = generation.UserMessage(err)
		m.notifyLocked()
		return err
	}
	if len(built) == 0 {
		m.notifyLocked()
		return nil
	}
	prev := len(m.cards)
	m.releaseAllLocked()
	m.cards = built
	m.consumed = 0
	m.progress = 100
	m.errMsg = ""
	m.afterLengthChangeLocked(prev)
	m.notifyLocked()
	return nil
}

// Maintain tops the queue up to TargetSize. It is a no-op while another
// maintain pass is running. New cards are appended to whatever the queue
// holds when they are ready; they are dropped if a load started since.
func (m *Manager) Maintain(ctx context.Context, level sentence.Level, speed float64) error {
	if !m.refilling.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	if m.closed {
		m.refilling.Store(false)
		m.mu.Unlock()
		return errClosed
	}
	needed := m.config.TargetSize - len(m.cards)
	gen := m.generation
	if needed <= 0 {
		m.refilling.Store(false)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	built, err := m.loadBatch(ctx, gen, level, speed, needed, false)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refilling.Store(false)
	if gen != m.generation || m.closed {
		releaseCards(built)
		// A load installed since may have skipped its refill while this
		// pass held the guard.
		m.retriggerLocked()
		return nil
	}
	if err != nil {
		m.errMsg = generation.UserMessage(err)
		m.notifyLocked()
		return err
	}
	if len(built) == 0 {
		return nil
	}
	prev := len(m.cards)
	m.cards = append(m.cards, built...)
	m.afterLengthChangeLocked(prev)
	m.notifyLocked()
	return nil
}

// Refilling reports whether a maintain pass is in flight.
func (m *Manager) Refilling() bool { return m.refilling.Load() }

// loadBatch fetches count sentences and builds them concurrently. A nil
// result with nil error means no content was available. When
// withProgress is set, progress is reported against gen.
func (m *Manager) loadBatch(ctx context.Context, gen uint64, level sentence.Level, speed float64, count int, withProgress bool) ([]*card.Card, error) {
	batch, err := m.mixer.FetchBatch(ctx, level, count)
	if err != nil {
		return nil, fmt.Errorf("fetch sentences: %w", err)
	}
	if len(batch) == 0 {
		return nil, nil
	}

	results := make([]*card.Card, len(batch))
	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.BuildConcurrency)
	for i, s := range batch {
		g.Go(func() error {
			results[i] = m.builder.Build(gctx, s, speed, level)
			n := done.Add(1)
			if withProgress {
				m.reportProgress(gen, int(n)*100/len(batch))
			}
			return nil
		})
	}
	_ = g.Wait()

	built := make([]*card.Card, 0, len(results))
	for _, c := range results {
		if c != nil {
			built = append(built, c)
		}
	}
	return built, nil
}

func (m *Manager) reportProgress(gen uint64, pct int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || pct <= m.progress {
		return
	}
	m.progress = min(pct, 100)
	m.notifyLocked()
}

func (m *Manager) loadTimedOut(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || !m.loading {
		return
	}
	m.errMsg = generation.TimeoutHint
	m.loading = false
	m.notifyLocked()
	m.logger.Warn("queue load exceeded timeout", "timeout", m.config.LoadTimeout)
}

// Advance removes and returns the head card, or nil when empty. The
// returned card's audio has already been released, so only its ID and
// sentence are usable. Advance does not
// count as consumption; use Skip or Save for that.
func (m *Manager) Advance() *card.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.popLocked()
	if c != nil {
		m.notifyLocked()
	}
	return c
}

// Skip drops the head card and counts it as consumed.
func (m *Manager) Skip() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.popLocked() == nil {
		return false
	}
	m.consumed++
	m.notifyLocked()
	return true
}

// Save persists the head card to the library, then removes it and
// counts it as consumed. If the head changed while saving, the queue is
// left alone.
func (m *Manager) Save(ctx context.Context) error {
	head, err := m.persistHead(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedIDs[head.ID] = true
	if len(m.cards) == 0 || m.cards[0].ID != head.ID {
		m.notifyLocked()
		return nil
	}
	m.popLocked()
	m.consumed++
	m.notifyLocked()
	return nil
}

// SaveWithoutAdvancing persists the head card and keeps it displayed.
// Repeated calls for the same card persist it once.
func (m *Manager) SaveWithoutAdvancing(ctx context.Context) error {
	m.mu.Lock()
	if len(m.cards) > 0 && m.savedIDs[m.cards[0].ID] {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	head, err := m.persistHead(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedIDs[head.ID] = true
	m.notifyLocked()
	return nil
}

func (m *Manager) persistHead(ctx context.Context) (card.Card, error) {
	m.mu.Lock()
	if len(m.cards) == 0 {
		m.mu.Unlock()
		return card.Card{}, ErrEmpty
	}
	head := *m.cards[0]
	m.mu.Unlock()

	if m.library == nil {
		return head, errors.New("library is not configured")
	}
	now := m.now()
	if err := m.library.Save(ctx, ToSaved(head, now)); err != nil {
		return head, fmt.Errorf("save card: %w", err)
	}
	return head, nil
}

// ToSaved converts a card into its durable library form.
func ToSaved(c card.Card, at time.Time) store.SavedCard {
	s := c.Sentence
	if c.Level != "" {
		s.Level = c.Level
	}
	return store.SavedCard{ID: c.ID, Sentence: s, CreatedAt: at, SavedAt: at}
}

// ToggleDisplayForm flips the head card between casual and polite.
func (m *Manager) ToggleDisplayForm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cards) == 0 {
		return
	}
	m.cards[0].DisplayForm = m.cards[0].DisplayForm.Toggle()
	m.notifyLocked()
}

// LoadSingle replaces the queue with one saved card, re-synthesizing its
// audio, then schedules a refill toward TargetSize using the current
// settings.
func (m *Manager) LoadSingle(ctx context.Context, cardID string, speed float64) error {
	if m.library == nil {
		return errors.New("library is not configured")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errClosed
	}
	m.generation++
	gen := m.generation
	m.loading = true
	m.errMsg = ""
	m.speed = speed
	m.notifyLocked()
	m.mu.Unlock()

	saved, err := m.library.Get(ctx, cardID)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen == m.generation {
			m.loading = false
			m.errMsg = msgCardMissing
			if !errors.Is(err, store.ErrNotFound) {
				m.errMsg = err.Error()
			}
			m.notifyLocked()
		}
		return fmt.Errorf("load saved card %s: %w", cardID, err)
	}

	c := m.builder.BuildWithID(ctx, saved.ID, saved.Sentence, speed, saved.Sentence.Level)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.closed {
		c.Release()
		return nil
	}
	m.releaseAllLocked()
	m.cards = []*card.Card{c}
	m.savedIDs[c.ID] = true
	m.loading = false
	m.progress = 100
	m.scheduleMaintainLocked()
	m.notifyLocked()
	return nil
}

// SetSettings changes the level and speed used by automatic refills.
// It does not reload the queue.
func (m *Manager) SetSettings(level sentence.Level, speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level, m.speed = level, speed
	m.notifyLocked()
}

// Settings returns the current level and speed.
func (m *Manager) Settings() (sentence.Level, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, m.speed
}

// ClearError dismisses the current error message.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errMsg != "" {
		m.errMsg = ""
		m.notifyLocked()
	}
}

// Close releases every card and waits for background refills.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.releaseAllLocked()
	m.cards = nil
	for ch := range m.subs {
		close(ch)
		delete(m.subs, ch)
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Wait blocks until background refills scheduled so far have finished.
func (m *Manager) Wait() { m.wg.Wait() }

var errClosed = errors.New("queue manager closed")

func (m *Manager) popLocked() *card.Card {
	if len(m.cards) == 0 {
		return nil
	}
	prev := len(m.cards)
	head := m.cards[0]
	m.cards[0] = nil
	m.cards = m.cards[1:]
	head.Release()
	m.afterLengthChangeLocked(prev)
	return head
}

// afterLengthChangeLocked applies the low-watermark rule: landing on
// 1..RefillThreshold cards schedules a refill; reaching zero does not.
func (m *Manager) afterLengthChangeLocked(prev int) {
	n := len(m.cards)
	if n == prev || n == 0 || n > m.config.RefillThreshold {
		return
	}
	m.scheduleMaintainLocked()
}

// retriggerLocked schedules a refill when the queue sits at the low
// watermark, regardless of how it got there.
func (m *Manager) retriggerLocked() {
	if n := len(m.cards); n > 0 && n <= m.config.RefillThreshold {
		m.scheduleMaintainLocked()
	}
}

func (m *Manager) scheduleMaintainLocked() {
	if m.closed || m.refilling.Load() {
		return
	}
	level, speed := m.level, m.speed
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.Maintain(m.ctx, level, speed); err != nil && !errors.Is(err, errClosed) {
			m.logger.Warn("background refill failed", "level", level, "error", err)
		}
	}()
}

func (m *Manager) releaseAllLocked() {
	releaseCards(m.cards)
}

func releaseCards(cards []*card.Card) {
	for _, c := range cards {
		c.Release()
	}
}
