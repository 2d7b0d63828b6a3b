package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/store"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CardResponse is one queued card.
type CardResponse struct {
	ID          string                     `json:"id"`
	Text        string                     `json:"text"`
	Casual      string                     `json:"casual"`
	Polite      string                     `json:"polite"`
	Translation string                     `json:"translation,omitempty"`
	Furigana    []sentence.FuriganaSegment `json:"furigana"`
	Form        sentence.Form              `json:"form"`
	Level       sentence.Level             `json:"level"`
	HasAudio    bool                       `json:"hasAudio"`
	AudioURL    string                     `json:"audioUrl,omitempty"`
	DurationMs  int64                      `json:"durationMs,omitempty"`
}

// QueueResponse is the queue snapshot sent to clients.
type QueueResponse struct {
	Cards     []CardResponse `json:"cards"`
	Loading   bool           `json:"loading"`
	Progress  int            `json:"progress"`
	Error     string         `json:"error,omitempty"`
	Consumed  int            `json:"consumed"`
	HeadSaved bool           `json:"headSaved"`
	Refilling bool           `json:"refilling"`
	Level     sentence.Level `json:"level"`
	Speed     float64        `json:"speed"`
}

// FreshRequest starts a new run, optionally with new settings.
type FreshRequest struct {
	Level string  `json:"level" validate:"omitempty,oneof=N5 N4 N3 N2 N1"`
	Speed float64 `json:"speed" validate:"omitempty,gte=0.8,lte=1.2"`
}

// VocabularyRequest adds a word.
type VocabularyRequest struct {
	Word    string `json:"word" validate:"required,max=64"`
	Reading string `json:"reading" validate:"max=64"`
}

// VocabularyResponse is one vocabulary item.
type VocabularyResponse struct {
	ID        string    `json:"id"`
	Word      string    `json:"word"`
	Reading   string    `json:"reading,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedCardResponse is one library entry.
type SavedCardResponse struct {
	ID       string            `json:"id"`
	Sentence sentence.Sentence `json:"sentence"`
	SavedAt  time.Time         `json:"savedAt"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) snapshot() QueueResponse {
	st := s.queue.Snapshot()
	resp := QueueResponse{
		Cards:     make([]CardResponse, 0, len(st.Cards)),
		Loading:   st.Loading,
		Progress:  st.Progress,
		Error:     st.Err,
		Consumed:  st.Consumed,
		HeadSaved: st.HeadSaved,
		Refilling: st.Refilling,
		Level:     st.Level,
		Speed:     st.Speed,
	}
	for _, c := range st.Cards {
		cr := CardResponse{
			ID:          c.ID,
			Text:        c.Text(),
			Casual:      c.Sentence.CasualText(),
			Polite:      c.Sentence.PoliteText(),
			Translation: c.Sentence.Translation,
			Furigana:    c.Furigana(),
			Form:        c.DisplayForm,
			Level:       c.Level,
		}
		if clip := c.CurrentAudio(); clip != nil {
			cr.HasAudio = true
			cr.AudioURL = "/api/cards/" + c.ID + "/audio/" + string(c.DisplayForm)
			cr.DurationMs = clip.Duration().Milliseconds()
		}
		resp.Cards = append(resp.Cards, cr)
	}
	return resp
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) skip(w http.ResponseWriter, r *http.Request) {
	if !s.queue.Skip() {
		respondError(w, http.StatusConflict, queue.ErrEmpty.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.respondAfter(w, s.queue.Save(r.Context()))
}

func (s *Server) saveInline(w http.ResponseWriter, r *http.Request) {
	s.respondAfter(w, s.queue.SaveWithoutAdvancing(r.Context()))
}

func (s *Server) respondAfter(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrEmpty):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("queue operation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to save card")
	default:
		respondJSON(w, http.StatusOK, s.snapshot())
	}
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.queue.ToggleDisplayForm()
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	s.queue.ClearError()
	respondJSON(w, http.StatusOK, s.snapshot())
}

// fresh starts a new run in the background; progress arrives over the
// websocket or by polling /api/queue.
func (s *Server) fresh(w http.ResponseWriter, r *http.Request) {
	var req FreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request format")
			return
		}
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	level, speed := s.queue.Settings()
	if req.Level != "" {
		level = sentence.Level(req.Level)
	}
	if req.Speed != 0 {
		speed = speech.NormalizeSpeed(req.Speed)
	}
	s.goLoad("fresh", func(ctx context.Context) error {
		return s.queue.StartFreshRun(ctx, level, speed)
	})
	respondJSON(w, http.StatusAccepted, s.snapshot())
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	s.goLoad("reload", s.queue.RequestFreshBatch)
	respondJSON(w, http.StatusAccepted, s.snapshot())
}

func (s *Server) loadSingle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cardID")
	_, speed := s.queue.Settings()
	err := s.queue.LoadSingle(r.Context(), id, speed)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Saved card not found.")
	case err != nil:
		s.logger.Error("load saved card failed", "card_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load card")
	default:
		respondJSON(w, http.StatusOK, s.snapshot())
	}
}

func (s *Server) audio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form := sentence.ParseForm(chi.URLParam(r, "form"))

	var clip *speech.Clip
	for _, c := range s.queue.Snapshot().Cards {
		if c.ID == id {
			clip = c.Audio(form)
			break
		}
	}
	if clip == nil {
		respondError(w, http.StatusNotFound, "No audio for this card")
		return
	}

	rc, err := clip.Open()
	if err != nil {
		respondError(w, http.StatusGone, "Audio is no longer available")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.FormatInt(clip.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug("audio stream interrupted", "card_id", id, "error", err)
	}
}

func (s *Server) listVocabulary(w http.ResponseWriter, r *http.Request) {
	items, err := s.vocab.List(r.Context())
	if err != nil {
		s.logger.Error("list vocabulary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list vocabulary")
		return
	}
	out := make([]VocabularyResponse, 0, len(items))
	for _, it := range items {
		out = append(out, VocabularyResponse{ID: it.ID, Word: it.Word, Reading: it.Reading, CreatedAt: it.CreatedAt})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) addVocabulary(w http.ResponseWriter, r *http.Request) {
	var req VocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	item, err := s.vocab.Add(r.Context(), store.VocabularyItem{Word: req.Word, Reading: req.Reading})
	if err != nil {
		s.logger.Error("add vocabulary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to add word")
		return
	}
	respondJSON(w, http.StatusCreated, VocabularyResponse{ID: item.ID, Word: item.Word, Reading: item.Reading, CreatedAt: item.CreatedAt})
}

func (s *Server) deleteVocabulary(w http.ResponseWriter, r *http.Request) {
	err := s.vocab.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Word not found")
	case err != nil:
		s.logger.Error("delete vocabulary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete word")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listLibrary(w http.ResponseWriter, r *http.Request) {
	opts := store.QueryOpts{Limit: 50}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}

	cards, err := s.library.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("list library failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list saved cards")
		return
	}
	out := make([]SavedCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, SavedCardResponse{ID: c.ID, Sentence: c.Sentence, SavedAt: c.SavedAt})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	first, err := json.Marshal(s.snapshot())
	if err != nil {
		first = nil
	}
	s.hub.Register(conn, first)
}
