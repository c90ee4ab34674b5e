package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds the runtime configuration read from the environment.
type Settings struct {
	Port      string
	OutputDir string

	// Comma separated codec preference lists, e.g. "avc,mjpeg"
	VideoCodecs []string
	AudioCodecs []string
	FFmpegPath  string

	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3Prefix       string
	S3Endpoint     string
	S3UsePathStyle bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers       []string
	KafkaRequestsTopic string
	KafkaEventsTopic   string
	KafkaGroupID       string

	YouTubeCredentials string
}

// Load reads .env (if present) and the process environment.
func Load() Settings {
	// Non-fatal if missing
	_ = godotenv.Load()

	prefix := strings.TrimSpace(os.Getenv("S3_PREFIX"))
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}

	db, _ := strconv.Atoi(GetEnvOrDefault("REDIS_DB", "0"))

	return Settings{
		Port:               GetEnvOrDefault("PORT", "8080"),
		OutputDir:          GetEnvOrDefault("OUTPUT_DIR", OutputDir),
		VideoCodecs:        splitList(GetEnvOrDefault("VIDEO_CODECS", "avc,mjpeg")),
		AudioCodecs:        splitList(GetEnvOrDefault("AUDIO_CODECS", "aac,pcm")),
		FFmpegPath:         GetEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		S3Bucket:           strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:           strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Profile:          strings.TrimSpace(os.Getenv("S3_PROFILE")),
		S3Prefix:           prefix,
		S3Endpoint:         strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3UsePathStyle:     strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            db,
		KafkaBrokers:       splitList(GetEnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRequestsTopic: GetEnvOrDefault("EXPORT_REQUESTS_TOPIC", "slide-export-requests"),
		KafkaEventsTopic:   GetEnvOrDefault("EXPORT_EVENTS_TOPIC", "slide-export-events"),
		KafkaGroupID:       GetEnvOrDefault("KAFKA_GROUP_ID", "slidecast-exporter"),
		YouTubeCredentials: strings.TrimSpace(os.Getenv("YOUTUBE_CREDENTIALS")),
	}
}

// GetEnvOrDefault returns the environment variable or a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
