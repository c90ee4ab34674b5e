package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegPath is the ffmpeg binary used for every process we start
var FFmpegPath = "ffmpeg"

// Command turns an ffmpeg-go stream graph into a context-bound command.
// Callers wire Stdin/Stdout themselves.
func Command(ctx context.Context, stream *ffmpeg.Stream) *exec.Cmd {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, stream.GetArgs()...)
	return exec.CommandContext(ctx, FFmpegPath, args...)
}

// Run executes the stream graph, capturing stderr into the returned error
func Run(ctx context.Context, stream *ffmpeg.Stream, stdout *bytes.Buffer) error {
	cmd := Command(ctx, stream)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

var (
	encodersOnce sync.Once
	encoders     string
	encodersErr  error
)

// HasEncoder reports whether the local ffmpeg build lists the named encoder
func HasEncoder(name string) bool {
	encodersOnce.Do(func() {
		if _, err := exec.LookPath(FFmpegPath); err != nil {
			encodersErr = err
			return
		}
		out, err := exec.Command(FFmpegPath, "-hide_banner", "-encoders").Output()
		encoders, encodersErr = string(out), err
	})
	if encodersErr != nil {
		return false
	}
	for _, line := range strings.Split(encoders, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

// MediaInfo is the subset of ffprobe output we use
type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
	HasVideo bool
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// Probe inspects a media file with ffprobe
func Probe(path string) (*MediaInfo, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseProbe([]byte(raw))
}

// ParseProbe decodes ffprobe's JSON output
func ParseProbe(raw []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse probe output: %w", err)
	}

	info := &MediaInfo{Duration: parseSeconds(out.Format.Duration)}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width, info.Height = s.Width, s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			if info.Duration == 0 {
				info.Duration = parseSeconds(s.Duration)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
