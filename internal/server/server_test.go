package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/logging"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/store"
)

type listMixer struct{}

func (listMixer) FetchBatch(_ context.Context, level sentence.Level, count int) ([]sentence.Sentence, error) {
	out := make([]sentence.Sentence, count)
	for i := range out {
		out[i] = sentence.Sentence{
			Text:   fmt.Sprintf("文%d。", i),
			Casual: fmt.Sprintf("文%d。", i),
			Polite: fmt.Sprintf("文%dです。", i),
			Level:  level,
		}
	}
	return out, nil
}

type bytesSynth struct{ dir string }

func (b bytesSynth) Synthesize(_ context.Context, text string, _ float64) (*speech.Clip, error) {
	return speech.NewClip(b.dir, []byte("audio:"+text))
}

type fixture struct {
	srv   *Server
	http  *httptest.Server
	queue *queue.Manager
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := logging.Discard()
	builder := card.NewBuilder(bytesSynth{dir: t.TempDir()}, logger)
	cfg := queue.DefaultConfig()
	cfg.TargetSize = 3
	cfg.RefillThreshold = 0
	q := queue.New(listMixer{}, builder, st.SavedCardRepo(), cfg, queue.WithLogger(logger))
	t.Cleanup(q.Close)

	s := New(q, st.VocabularyRepo(), st.SavedCardRepo(), logger)
	t.Cleanup(s.Close)
	hs := httptest.NewServer(s.Router())
	t.Cleanup(hs.Close)

	return &fixture{srv: s, http: hs, queue: q, store: st}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeQueue(t *testing.T, data []byte) QueueResponse {
	t.Helper()
	var q QueueResponse
	require.NoError(t, json.Unmarshal(data, &q), string(data))
	return q
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestQueueAndAudio(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.InitialLoad(context.Background(), sentence.N4, 1))

	resp, body := f.do(t, http.MethodGet, "/api/queue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decodeQueue(t, body)
	require.Len(t, q.Cards, 3)
	assert.Equal(t, sentence.N4, q.Level)
	assert.Equal(t, 100, q.Progress)
	head := q.Cards[0]
	assert.True(t, head.HasAudio)
	assert.Equal(t, "/api/cards/"+head.ID+"/audio/casual", head.AudioURL)
	assert.Equal(t, sentence.FormCasual, head.Form)

	resp, body = f.do(t, http.MethodGet, head.AudioURL, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "audio:"+head.Casual, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/cards/"+head.ID+"/audio/polite", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio:"+head.Polite, string(body))

	resp, body = f.do(t, http.MethodPost, "/api/queue/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sentence.FormPolite, decodeQueue(t, body).Cards[0].Form)

	resp, body = f.do(t, http.MethodPost, "/api/queue/skip", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q = decodeQueue(t, body)
	assert.Equal(t, 1, q.Consumed)
	assert.Len(t, q.Cards, 2)

	resp, _ = f.do(t, http.MethodGet, head.AudioURL, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "skipped card's audio is gone")
}

func TestSaveAndLibrary(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/queue/save", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)

	require.NoError(t, f.queue.InitialLoad(context.Background(), sentence.N5, 1))
	head := f.queue.Snapshot().Head()

	resp, body = f.do(t, http.MethodPost, "/api/queue/save-inline", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeQueue(t, body).HeadSaved)

	resp, body = f.do(t, http.MethodPost, "/api/queue/save", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeQueue(t, body).Consumed)

	resp, body = f.do(t, http.MethodGet, "/api/library", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved []SavedCardResponse
	require.NoError(t, json.Unmarshal(body, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, head.ID, saved[0].ID)
	assert.Equal(t, head.Sentence.Text, saved[0].Sentence.Text)

	resp, body = f.do(t, http.MethodPost, "/api/queue/load/"+head.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decodeQueue(t, body)
	assert.Equal(t, head.ID, q.Cards[0].ID)
	assert.True(t, q.HeadSaved)

	resp, _ = f.do(t, http.MethodPost, "/api/queue/load/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVocabulary(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/vocabulary", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/vocabulary", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/vocabulary", `{"word":"猫","reading":"ねこ"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item VocabularyResponse
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "猫", item.Word)
	assert.NotEmpty(t, item.ID)

	resp, body = f.do(t, http.MethodGet, "/api/vocabulary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []VocabularyResponse
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)

	resp, _ = f.do(t, http.MethodDelete, "/api/vocabulary/"+item.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/api/vocabulary/"+item.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFreshRun(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/queue/fresh", `{"level":"N9"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/queue/fresh", `{"speed":3}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/queue/fresh", `{"level":"N3","speed":1.16}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return len(f.queue.Snapshot().Cards) == 3
	}, 2*time.Second, 10*time.Millisecond)
	st := f.queue.Snapshot()
	assert.Equal(t, sentence.N3, st.Level)
	assert.InDelta(t, 1.2, st.Speed, 1e-9)

	resp, _ = f.do(t, http.MethodPost, "/api/queue/reload", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestWebsocketStream(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.srv.Broadcast(ctx)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() QueueResponse {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		return decodeQueue(t, data)
	}

	first := read()
	assert.Empty(t, first.Cards)

	require.Eventually(t, func() bool { return f.srv.Hub().Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.queue.InitialLoad(context.Background(), sentence.N5, 1))

	// The broadcaster may subscribe after the load; keep poking the queue
	// until a loaded snapshot arrives.
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				f.queue.ToggleDisplayForm()
			}
		}
	}()
	for {
		q := read()
		if len(q.Cards) == 3 && !q.Loading {
			break
		}
	}
	close(done)

	f.queue.Skip()
	for {
		q := read()
		if q.Consumed == 1 {
			assert.Len(t, q.Cards, 2)
			break
		}
	}
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusTeapot, "short and stout")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"short and stout"}`, string(bytes.TrimSpace(rec.Body.Bytes())))
}
