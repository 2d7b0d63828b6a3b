package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoPlayer is returned when no playback program is installed.
var ErrNoPlayer = errors.New("no audio player found (install mpv, ffplay or mpg123)")

// Player plays a clip to completion or until ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}

// players lists supported programs in preference order, with the
// arguments that make each one play a file once and exit.
var players = []struct {
	bin  string
	args []string
}{
	{"mpv", []string{"--no-video", "--really-quiet"}},
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"mpg123", []string{"-q"}},
	{"afplay", nil},
}

// CommandPlayer plays clips through the first available program from
// players. Program forces a specific binary.
type CommandPlayer struct {
	Program string
}

// Play runs the player on the clip's file. A released clip yields
// ErrReleased.
func (p CommandPlayer) Play(ctx context.Context, clip *Clip) error {
	if clip == nil {
		return errors.New("no audio for this card")
	}
	if clip.Released() {
		return ErrReleased
	}
	bin, args, err := p.command()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, bin, append(args, clip.Path())...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}

func (p CommandPlayer) command() (string, []string, error) {
	for _, pl := range players {
		if p.Program != "" && p.Program != pl.bin {
			continue
		}
		path, err := exec.LookPath(pl.bin)
		if err != nil {
			continue
		}
		return path, pl.args, nil
	}
	if p.Program != "" {
		if path, err := exec.LookPath(p.Program); err == nil {
			return path, nil, nil
		}
		return "", nil, fmt.Errorf("%s not found in PATH", p.Program)
	}
	return "", nil, ErrNoPlayer
}
