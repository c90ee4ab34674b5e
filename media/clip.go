package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"slidecast/audio"
	"slidecast/common"
	"slidecast/config"
	"slidecast/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Clip is a playable video visual decoded by ffmpeg into RGBA frames.
// Frames are read forward sequentially; seeking backwards restarts the
// decoder. Past the end the final frame is held.
type Clip struct {
	path string
	info *common.MediaInfo
	fps  int

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	index   int
	current *image.RGBA
	spare   *image.RGBA
	eof     bool
}

// NewClip probes a local video file
func NewClip(path string) (*Clip, error) {
	info, err := common.Probe(path)
	if err != nil {
		return nil, err
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%s has no video stream", path)
	}
	return &Clip{path: path, info: info, fps: config.FrameRate}, nil
}

func (c *Clip) Size() (int, int)        { return c.info.Width, c.info.Height }
func (c *Clip) Duration() time.Duration { return c.info.Duration }

// Open starts the decoder at the beginning of the clip. ctx must outlive
// every Frame call; the decoder is restarted under it on backward seeks.
func (c *Clip) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c.startLocked(0)
}

func (c *Clip) startLocked(at time.Duration) error {
	c.stopLocked()

	kw := ffmpeg.KwArgs{}
	if at > 0 {
		kw["ss"] = strconv.FormatFloat(at.Seconds(), 'f', 3, 64)
	}
	stream := ffmpeg.Input(c.path, kw).Output("pipe:1", ffmpeg.KwArgs{
		"an":      "",
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"r":       c.fps,
	})

	cmd := common.Command(c.ctx, stream)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start clip decoder: %w", err)
	}
	c.cmd, c.stdout = cmd, stdout
	c.eof = false
	c.index = int(int64(at) * int64(c.fps) / int64(time.Second))

	if c.current == nil {
		c.current = image.NewRGBA(image.Rect(0, 0, c.info.Width, c.info.Height))
	}
	return c.readLocked()
}

// readLocked decodes the next frame into current
func (c *Clip) readLocked() error {
	if c.spare == nil {
		c.spare = image.NewRGBA(image.Rect(0, 0, c.info.Width, c.info.Height))
	}
	if _, err := io.ReadFull(c.stdout, c.spare.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			c.eof = true
			return nil
		}
		return err
	}
	c.current, c.spare = c.spare, c.current
	return nil
}

// Frame returns the frame at t. The returned image is reused by the next call.
func (c *Clip) Frame(ctx context.Context, t time.Duration) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil {
		return nil, errors.New("clip not open")
	}
	target := int(int64(t) * int64(c.fps) / int64(time.Second))
	if target < c.index {
		if err := c.startLocked(t); err != nil {
			return nil, err
		}
	}
	for c.index < target && !c.eof {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.readLocked(); err != nil {
			return nil, err
		}
		if !c.eof {
			c.index++
		}
	}
	return c.current, nil
}

// DecodeAudio decodes the clip's embedded audio track. Clips without audio
// yield an empty buffer.
func (c *Clip) DecodeAudio(ctx context.Context, sampleRate, channels int) (*types.AudioBuffer, error) {
	if !c.info.HasAudio {
		return types.NewAudioBuffer(sampleRate, channels, 0), nil
	}
	return audio.DecodeFile(ctx, c.path, sampleRate, channels)
}

func (c *Clip) stopLocked() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.stdout.Close()
	_ = c.cmd.Wait()
	c.cmd, c.stdout = nil, nil
}

func (c *Clip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.current, c.spare = nil, nil
	return nil
}
