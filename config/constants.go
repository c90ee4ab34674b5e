package config

import "time"

// Timeline Constants
const (
	// DefaultSlideDuration is used for slides with no narration and no clip
	DefaultSlideDuration = 5 * time.Second

	// DefaultSlideDelaySeconds is the gap inserted after every slide but the last
	DefaultSlideDelaySeconds = 1.0
)

// Video Output Constants
const (
	// FrameRate is the output frame rate for both pipelines
	FrameRate = 30

	// VideoBitrate is the target video bitrate in bits per second
	VideoBitrate = 5_000_000

	// KeyframeIntervalSeconds places a keyframe every N seconds of output
	KeyframeIntervalSeconds = 2

	// DefaultWidth is the output width when none is requested
	DefaultWidth = 1920

	// DefaultHeight is the output height when none is requested
	DefaultHeight = 1080

	// MaxDimension is the largest raster edge we will allocate
	MaxDimension = 7680

	// JPEGQuality is used by the in-process MJPEG codec
	JPEGQuality = 85

	// X264Preset is the ffmpeg encoding speed preset
	X264Preset = "veryfast"
)

// Audio Constants
const (
	// SampleRate is the mix and encode sample rate
	SampleRate = 48000

	// Channels is the mix and encode channel count
	Channels = 2

	// AudioBitrate is the AAC bitrate in bits per second
	AudioBitrate = 128_000

	// AudioChunkFrames is the number of sample frames per encoded audio chunk
	AudioChunkFrames = 4800
)

// Encoder Queue Constants
const (
	// VideoQueueHighWater suspends frame production while the encoder has more pending frames
	VideoQueueHighWater = 8

	// AudioQueueHighWater suspends audio submission while the encoder has more pending chunks
	AudioQueueHighWater = 16

	// ProgressEveryFrames is the sub-slide progress cadence during frame production
	ProgressEveryFrames = 15

	// PreloadConcurrency bounds concurrent visual preloading
	PreloadConcurrency = 4
)

// Subtitle Constants
const (
	// SubtitleMaxCharsPortrait bounds chunk length for tall outputs
	SubtitleMaxCharsPortrait = 28

	// SubtitleMaxCharsLandscape bounds chunk length for wide outputs
	SubtitleMaxCharsLandscape = 56

	// ReferenceShortSide is the short edge the subtitle font size is specified against
	ReferenceShortSide = 1080

	// OutlineOpacityThreshold swaps the text box for an outline below this opacity
	OutlineOpacityThreshold = 0.1

	// DefaultFontSize is the subtitle size at the reference canvas
	DefaultFontSize = 48

	// DefaultFontFamily names one of the bundled Go fonts
	DefaultFontFamily = "Go"

	// DefaultTextColor is the subtitle text color
	DefaultTextColor = "#FFFFFF"

	// DefaultBackgroundColor is the subtitle box color
	DefaultBackgroundColor = "#000000"

	// DefaultBackgroundOpacity is the subtitle box opacity
	DefaultBackgroundOpacity = 0.6

	// DefaultSubtitlePosition is the vertical center of the subtitle box, in percent of height
	DefaultSubtitlePosition = 85.0
)

// Service Constants
const (
	// MaxConcurrentExports limits the number of exports processed simultaneously
	MaxConcurrentExports = 1

	// JobQueueSize is how many submitted exports may wait for the runner
	JobQueueSize = 32

	// MaxJobLogs is the size of each job's log ring buffer
	MaxJobLogs = 50

	// JobStatusTTL is how long job snapshots live in Redis
	JobStatusTTL = 24 * time.Hour

	// RedisKeyPrefix namespaces job snapshots
	RedisKeyPrefix = "slidecast:job:"

	// FetchTimeout bounds a single remote asset download
	FetchTimeout = 60 * time.Second

	// OutputDir is the default directory for exported videos
	OutputDir = "output"
)

// YouTube Constants
const (
	// YouTubeCategoryID for Education
	YouTubeCategoryID = "27"

	// YouTubePrivacyStatus sets video visibility
	YouTubePrivacyStatus = "unlisted"

	// MaxTitleLength is the maximum character length for video titles
	MaxTitleLength = 100
)
