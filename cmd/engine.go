package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/config"
	"github.com/abhisek/shadowdeck/internal/furigana"
	"github.com/abhisek/shadowdeck/internal/generation"
	"github.com/abhisek/shadowdeck/internal/llm"
	"github.com/abhisek/shadowdeck/internal/logging"
	"github.com/abhisek/shadowdeck/internal/mixer"
	"github.com/abhisek/shadowdeck/internal/practice"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/scoring"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/staticpool"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/task"
)

// engine is everything a front end needs: the queue and its sources,
// practice scoring and playback.
type engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	provider llm.Provider
	cache    *sentencecache.Cache
	tasks    *task.Runner
	queue    *queue.Manager
	tracker  *practice.Tracker
	player   speech.Player

	logCloser io.Closer
	synth     speech.Synthesizer
}

// newEngine loads config, sets up logging and assembles the engine.
// logToFile sends logs to a file under the data dir unless one is
// configured, which keeps them off the TUI; otherwise they go to stderr.
func newEngine(cmd *cobra.Command, logToFile bool) (*engine, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logFile := cfg.Log.File
	if logFile == "" && logToFile {
		dir, err := store.DataDir()
		if err != nil {
			return nil, err
		}
		logFile = filepath.Join(dir, "shadowdeck.log")
	}
	logger, logCloser, err := logging.Setup(cfg.Log.Level, logFile, os.Stderr)
	if err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, logger: logger, logCloser: logCloser}
	if err := e.build(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *engine) build(ctx context.Context) error {
	cfg := e.cfg

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	e.store, err = store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	// The LLM is optional: without it every sentence comes from the
	// bundled pool and attempts are not scored.
	if cfg.LLM.Configured() {
		e.provider, err = llm.NewProvider(ctx, cfg.LLM, e.store.EventRepo(), e.logger)
		if err != nil {
			e.logger.Warn("llm provider unavailable", "provider", cfg.LLM.Provider, "error", err)
			e.provider = nil
		}
	} else {
		e.logger.Info("llm provider not configured, generated sentences disabled")
	}

	analyzer, err := furigana.NewAnalyzer()
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	var generator generation.Generator
	if e.provider != nil {
		generator = generation.New(e.provider, generation.DefaultConfig(),
			generation.WithAnnotator(analyzer),
			generation.WithLogger(e.logger))
	}

	e.cache = sentencecache.New(e.store.SentenceCacheRepo(),
		sentencecache.WithCapacity(cfg.Cache.Capacity),
		sentencecache.WithLogger(e.logger))

	e.tasks = task.NewRunner(task.DefaultRunnerConfig(), e.logger)

	mix := mixer.New(staticpool.New(analyzer), e.cache, e.store.VocabularyRepo(), generator, e.tasks,
		mixer.WithStaticRatio(cfg.Cache.StaticRatio),
		mixer.WithLogger(e.logger))

	e.synth, err = speech.New(ctx, cfg.TTS, cfg.SpeechKey())
	if err != nil {
		e.logger.Warn("speech synthesis unavailable, cards will have no audio", "backend", cfg.TTS.Backend, "error", err)
		e.synth = speech.None{}
	}

	e.queue = queue.New(mix, card.NewBuilder(e.synth, e.logger), e.store.SavedCardRepo(), cfg.Queue,
		queue.WithLogger(e.logger),
		queue.WithSettings(cfg.Level, cfg.Speed))

	var transcriber scoring.Transcriber
	if key := cfg.SpeechKey(); key != "" {
		transcriber = scoring.NewWhisperTranscriber(scoring.WhisperConfig{APIKey: key})
	}
	e.tracker = practice.NewTracker(
		practice.CommandRecorder{
			Program:    cfg.Practice.Recorder,
			MaxSeconds: cfg.Practice.MaxSeconds,
			Dir:        cfg.TTS.TempDir,
		},
		scoring.New(transcriber, e.provider, e.logger),
		practice.WithLogger(e.logger),
		practice.WithSink(e.store.PracticeRepo()))

	e.player = speech.CommandPlayer{}
	return nil
}

// Close stops background work and releases resources in reverse order
// of construction.
func (e *engine) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.tracker != nil {
		e.tracker.Reset()
	}
	if e.tasks != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.tasks.Stop(ctx); err != nil {
			e.logger.Warn("background tasks did not stop cleanly", "error", err)
		}
		cancel()
	}
	if c, ok := e.synth.(io.Closer); ok {
		c.Close()
	}
	if e.store != nil {
		e.store.Close()
	}
	if e.logCloser != nil {
		e.logCloser.Close()
	}
}
