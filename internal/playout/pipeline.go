/*
Copyright (C) 2026 Polaris FM

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pipeline manages one external audio playback process. The process is
// expected to exit on its own when the clip ends; the director stops it
// earlier when the event window closes.
type Pipeline struct {
	playerBin string
	logger    zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{} // closed when the process has exited
}

// NewPipeline constructs a pipeline driving the given player binary.
func NewPipeline(playerBin string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{playerBin: playerBin, logger: logger}
}

// Start launches playback of path at the given in-clip offset. Returns
// an error if a previous process is still running.
func (p *Pipeline) Start(ctx context.Context, path string, offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.done != nil {
		select {
		case <-p.done:
			// Previous process has exited, ok to start new one
		default:
			return fmt.Errorf("pipeline already running")
		}
	}

	args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", offset.Seconds()))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, p.playerBin, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	p.cmd = cmd
	p.done = make(chan struct{})

	go func(done chan struct{}, c *exec.Cmd) {
		err := c.Wait()
		close(done)
		if err != nil {
			p.logger.Debug().Err(err).Str("path", path).Msg("player process exited")
		}
	}(p.done, cmd)

	return nil
}

// Stop terminates the running process, escalating from interrupt to kill.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	cmd := p.cmd
	done := p.done
	p.mu.Unlock()

	if cmd == nil || done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	default:
	}

	if cmd.Process != nil {
		_ = cmd.Process.Signal(os.Interrupt)
	}

	select {
	case <-time.After(5 * time.Second):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	case <-done:
	}

	return nil
}
