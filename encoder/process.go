package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"slidecast/common"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ffmpegProcess is a long-running ffmpeg filter: raw media in on stdin,
// an elementary stream out on stdout handed to onData as it arrives.
type ffmpegProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr lockedBuffer

	readDone chan struct{}
	readErr  error
	once     sync.Once
	waitErr  error
}

// lockedBuffer collects stderr; exec copies into it from its own goroutine
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startFFmpeg(stream *ffmpeg.Stream, onData func([]byte) error, onEOF func() error) (*ffmpegProcess, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &ffmpegProcess{cmd: common.Command(ctx, stream), cancel: cancel, readDone: make(chan struct{})}
	p.cmd.Stderr = &p.stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := p.cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	p.stdin = stdin

	go func() {
		defer close(p.readDone)
		buf := make([]byte, 64*1024)
		for {
			n, err := stdout.Read(buf)
			if n > 0 && p.readErr == nil {
				p.readErr = onData(buf[:n])
			}
			if err == io.EOF {
				if p.readErr == nil {
					p.readErr = onEOF()
				}
				return
			}
			if err != nil {
				if p.readErr == nil {
					p.readErr = err
				}
				return
			}
		}
	}()
	return p, nil
}

func (p *ffmpegProcess) Write(b []byte) error {
	if _, err := p.stdin.Write(b); err != nil {
		return fmt.Errorf("ffmpeg stdin: %w: %s", err, strings.TrimSpace(p.stderr.String()))
	}
	return nil
}

// finish closes stdin and waits for every output byte to be consumed
func (p *ffmpegProcess) finish() error {
	p.once.Do(func() {
		p.stdin.Close()
		<-p.readDone
		waitErr := p.cmd.Wait()
		p.cancel()
		if waitErr != nil {
			waitErr = fmt.Errorf("ffmpeg failed: %w: %s", waitErr, strings.TrimSpace(p.stderr.String()))
		}
		p.waitErr = errors.Join(p.readErr, waitErr)
	})
	return p.waitErr
}

// kill aborts the process without waiting for pending output
func (p *ffmpegProcess) kill() {
	p.once.Do(func() {
		p.cancel()
		p.stdin.Close()
		<-p.readDone
		p.cmd.Wait()
		p.waitErr = ErrClosed
	})
}
