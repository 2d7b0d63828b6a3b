package speech

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tcolgate/mp3"
)

// Clip is a synthesized audio payload spooled to a temp file. A card
// owns its clips and must Release them when it leaves the queue.
type Clip struct {
	path     string
	size     int64
	duration time.Duration

	mu       sync.Mutex
	released bool
}

// NewClip writes data to a new temp file in dir (os.TempDir when empty).
func NewClip(dir string, data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, errors.New("empty audio payload")
	}
	f, err := os.CreateTemp(dir, "shadowdeck-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close audio file: %w", err)
	}
	return &Clip{
		path:     f.Name(),
		size:     int64(len(data)),
		duration: mp3Duration(bytes.NewReader(data)),
	}, nil
}

// Path returns the file backing the clip.
func (c *Clip) Path() string { return c.path }

// Size returns the payload length in bytes.
func (c *Clip) Size() int64 { return c.size }

// Duration is the playback length summed over MP3 frames. Zero when the
// payload is not MP3.
func (c *Clip) Duration() time.Duration { return c.duration }

// Open returns a reader over the audio. It fails once the clip has been
// released.
func (c *Clip) Open() (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil, ErrReleased
	}
	return os.Open(c.path)
}

// Release deletes the backing file. Safe to call more than once and on
// a nil clip.
func (c *Clip) Release() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}
	c.released = true
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Released reports whether Release has been called.
func (c *Clip) Released() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// ErrReleased is returned when reading a released clip.
var ErrReleased = errors.New("audio clip released")

func mp3Duration(r io.Reader) time.Duration {
	var (
		dur     time.Duration
		dec     = mp3.NewDecoder(r)
		frame   mp3.Frame
		skipped int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			return dur
		}
		dur += frame.Duration()
	}
}
