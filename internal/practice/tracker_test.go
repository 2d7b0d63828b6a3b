package practice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/shadowdeck/internal/scoring"
	"github.com/abhisek/shadowdeck/internal/store"
)

type fakeRecording struct {
	path      string
	stopErr   error
	cancelled bool
}

func (r *fakeRecording) Stop() (string, error) { return r.path, r.stopErr }
func (r *fakeRecording) Cancel()               { r.cancelled = true }

type fakeRecorder struct {
	dir  string
	err  error
	last *fakeRecording
}

func (f *fakeRecorder) Start(context.Context) (Recording, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "attempt.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o600); err != nil {
		return nil, err
	}
	f.last = &fakeRecording{path: path}
	return f.last, nil
}

type scoreFunc func(ctx context.Context, path, ref string) (scoring.Result, error)

func (f scoreFunc) Score(ctx context.Context, path, ref string) (scoring.Result, error) {
	return f(ctx, path, ref)
}

type memSink struct {
	mu       sync.Mutex
	attempts []store.PracticeAttempt
}

func (s *memSink) Add(_ context.Context, a store.PracticeAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

func TestTracker_HappyPath(t *testing.T) {
	rec := &fakeRecorder{dir: t.TempDir()}
	var gotRef string
	scorer := scoreFunc(func(_ context.Context, path, ref string) (scoring.Result, error) {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("audio not present during scoring: %v", err)
		}
		gotRef = ref
		return scoring.Result{Score: 82, Feedback: "Nice.", Transcript: "ねこ"}, nil
	})
	sink := &memSink{}
	var statuses []Status
	tr := NewTracker(rec, scorer, WithSink(sink), OnChange(func(s State) { statuses = append(statuses, s.Status) }))

	tr.Bind("card-1")
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := tr.State().Status; got != StatusRecording {
		t.Fatalf("status = %s, want recording", got)
	}

	res, err := tr.Stop(context.Background(), "猫")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Score != 82 || gotRef != "猫" {
		t.Errorf("result = %+v, ref = %q", res, gotRef)
	}

	st := tr.State()
	if st.Status != StatusDone || st.Result.Feedback != "Nice." {
		t.Errorf("state = %+v", st)
	}
	if _, err := os.Stat(rec.last.path); !os.IsNotExist(err) {
		t.Errorf("recording file not removed after scoring")
	}

	want := []Status{StatusIdle, StatusRecording, StatusUploading, StatusDone}
	if strings.Join(toStrings(statuses), ",") != strings.Join(toStrings(want), ",") {
		t.Errorf("transitions = %v, want %v", statuses, want)
	}

	if len(sink.attempts) != 1 || sink.attempts[0].CardID != "card-1" || sink.attempts[0].Score != 82 {
		t.Errorf("attempts = %+v", sink.attempts)
	}

	tr.Reset()
	if got := tr.State(); got.Status != StatusIdle || got.CardID != "card-1" {
		t.Errorf("after reset: %+v", got)
	}
}

func toStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func TestTracker_CapabilityDenied(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("device busy")}
	tr := NewTracker(rec, nil)
	tr.Bind("card-1")

	err := tr.Start(context.Background())
	var denied *ErrCapabilityDenied
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want ErrCapabilityDenied", err)
	}
	st := tr.State()
	if st.Status != StatusError {
		t.Fatalf("status = %s, want error", st.Status)
	}
	if st.Err != "microphone unavailable: device busy" {
		t.Errorf("Err = %q", st.Err)
	}

	if err := tr.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Start from error: err = %v, want ErrBusy", err)
	}
	tr.Reset()
	if tr.State().Status != StatusIdle {
		t.Errorf("Reset did not return to idle")
	}

	none := NewTracker(nil, nil)
	if err := none.Start(context.Background()); !errors.As(err, &denied) {
		t.Errorf("nil recorder: err = %v", err)
	}
}

func TestTracker_ScoringFailure(t *testing.T) {
	rec := &fakeRecorder{dir: t.TempDir()}
	sink := &memSink{}
	tr := NewTracker(rec, scoreFunc(func(context.Context, string, string) (scoring.Result, error) {
		return scoring.Result{}, errors.New("whisper: 500")
	}), WithSink(sink))

	tr.Bind("c")
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Stop(context.Background(), "ref"); err == nil {
		t.Fatal("expected error")
	}
	st := tr.State()
	if st.Status != StatusError || !strings.Contains(st.Err, "whisper: 500") {
		t.Errorf("state = %+v", st)
	}
	if len(sink.attempts) != 0 {
		t.Errorf("failed attempt persisted")
	}

	tr.Reset()
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.last.stopErr = errors.New("recording is empty")
	if _, err := tr.Stop(context.Background(), "ref"); err == nil || !strings.Contains(err.Error(), "finish recording") {
		t.Errorf("stop failure: err = %v", err)
	}
}

func TestTracker_StopRequiresRecording(t *testing.T) {
	tr := NewTracker(&fakeRecorder{dir: t.TempDir()}, nil)
	if _, err := tr.Stop(context.Background(), "ref"); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestTracker_BindResets(t *testing.T) {
	rec := &fakeRecorder{dir: t.TempDir()}
	tr := NewTracker(rec, nil)

	tr.Bind("a")
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.Bind("a")
	if tr.State().Status != StatusRecording {
		t.Fatal("rebinding the same card must not reset")
	}

	tr.Bind("b")
	st := tr.State()
	if st.Status != StatusIdle || st.CardID != "b" {
		t.Errorf("state = %+v", st)
	}
	if !rec.last.cancelled {
		t.Error("recording not cancelled on card change")
	}
}

func TestTracker_BindDuringUploadDropsResult(t *testing.T) {
	rec := &fakeRecorder{dir: t.TempDir()}
	entered := make(chan struct{})
	release := make(chan struct{})
	sink := &memSink{}
	tr := NewTracker(rec, scoreFunc(func(context.Context, string, string) (scoring.Result, error) {
		close(entered)
		<-release
		return scoring.Result{Score: 90}, nil
	}), WithSink(sink))

	tr.Bind("a")
	if err := tr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tr.Stop(context.Background(), "ref")
	}()
	<-entered
	if tr.State().Status != StatusUploading {
		t.Fatalf("status = %s, want uploading", tr.State().Status)
	}

	tr.Bind("b")
	close(release)
	<-done

	st := tr.State()
	if st.Status != StatusIdle || st.CardID != "b" || st.Result.Score != 0 {
		t.Errorf("stale result applied: %+v", st)
	}
	if len(sink.attempts) != 0 {
		t.Errorf("stale attempt persisted")
	}
}

func TestCommandRecorder_MissingProgram(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	for _, prog := range []string{ProgramAuto, ProgramArecord, ProgramSox} {
		_, err := CommandRecorder{Program: prog, Dir: t.TempDir()}.Start(context.Background())
		var denied *ErrCapabilityDenied
		if !errors.As(err, &denied) {
			t.Errorf("%s: err = %v, want ErrCapabilityDenied", prog, err)
			continue
		}
		if !strings.HasPrefix(err.Error(), "microphone unavailable: ") {
			t.Errorf("%s: message = %q", prog, err.Error())
		}
	}

	_, err := CommandRecorder{Program: "ffmpeg"}.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unknown recorder") {
		t.Errorf("unknown program: err = %v", err)
	}
}
