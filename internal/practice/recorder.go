package practice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ErrCapabilityDenied reports that no microphone could be acquired.
type ErrCapabilityDenied struct {
	Reason string
	Err    error
}

func (e *ErrCapabilityDenied) Error() string {
	return "microphone unavailable: " + e.Reason
}

func (e *ErrCapabilityDenied) Unwrap() error { return e.Err }

// Recorder acquires the microphone and starts capturing.
type Recorder interface {
	Start(ctx context.Context) (Recording, error)
}

// Recording is an in-progress capture.
type Recording interface {
	// Stop finalizes the capture and returns the audio file path. The
	// caller owns the file.
	Stop() (string, error)

	// Cancel aborts the capture and discards the audio.
	Cancel()
}

// Recorder programs.
const (
	ProgramAuto    = "auto"
	ProgramArecord = "arecord"
	ProgramSox     = "sox"
)

// CommandRecorder captures 16 kHz mono WAV through an external program:
// arecord (ALSA) or sox's rec.
type CommandRecorder struct {
	Program    string // auto, arecord or sox
	MaxSeconds int
	Dir        string
}

// Start launches the recorder process.
func (r CommandRecorder) Start(ctx context.Context) (Recording, error) {
	bin, args, err := r.command()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(r.Dir, "shadowdeck-attempt-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}
	path := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, bin, append(args, path)...)
	if r.program() == ProgramSox {
		// rec takes effects after the output file.
		cmd.Args = append(cmd.Args, "trim", "0", strconv.Itoa(r.maxSeconds()))
	}
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return nil, &ErrCapabilityDenied{Reason: err.Error(), Err: err}
	}

	rec := &commandRecording{cmd: cmd, path: path, done: make(chan struct{})}
	go func() {
		rec.waitErr = cmd.Wait()
		close(rec.done)
	}()
	return rec, nil
}

func (r CommandRecorder) program() string {
	if r.Program == "" || r.Program == ProgramAuto {
		if _, err := exec.LookPath("arecord"); err == nil {
			return ProgramArecord
		}
		return ProgramSox
	}
	return r.Program
}

func (r CommandRecorder) maxSeconds() int {
	if r.MaxSeconds <= 0 {
		return 10
	}
	return r.MaxSeconds
}

func (r CommandRecorder) command() (string, []string, error) {
	var bin string
	var args []string
	switch p := r.program(); p {
	case ProgramArecord:
		bin = "arecord"
		args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-d", strconv.Itoa(r.maxSeconds())}
	case ProgramSox:
		bin = "rec"
		args = []string{"-q", "-c", "1", "-r", "16000"}
	default:
		return "", nil, &ErrCapabilityDenied{Reason: fmt.Sprintf("unknown recorder %q", p)}
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", nil, &ErrCapabilityDenied{Reason: bin + " not found in PATH", Err: err}
	}
	return path, args, nil
}

type commandRecording struct {
	cmd     *exec.Cmd
	path    string
	done    chan struct{}
	waitErr error
	once    sync.Once
}

const stopGrace = 2 * time.Second

func (c *commandRecording) Stop() (string, error) {
	c.interrupt()

	info, err := os.Stat(c.path)
	if err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	// A signal exit is normal; only an empty file means capture failed.
	if info.Size() <= 44 {
		os.Remove(c.path)
		if c.waitErr != nil {
			return "", &ErrCapabilityDenied{Reason: c.waitErr.Error(), Err: c.waitErr}
		}
		return "", errors.New("recording is empty")
	}
	return c.path, nil
}

func (c *commandRecording) Cancel() {
	c.interrupt()
	os.Remove(c.path)
}

func (c *commandRecording) interrupt() {
	c.once.Do(func() {
		select {
		case <-c.done:
			return
		default:
		}
		_ = c.cmd.Process.Signal(os.Interrupt)
		select {
		case <-c.done:
		case <-time.After(stopGrace):
			_ = c.cmd.Process.Kill()
			<-c.done
		}
	})
}
