package publish

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"slidecast/config"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Metadata describes a published video
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// YouTube uploads exported videos with a service account
type YouTube struct {
	service *youtube.Service
}

// NewYouTube reads a service account key file and builds an upload client
func NewYouTube(ctx context.Context, serviceAccountFile string) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &YouTube{service: service}, nil
}

// Publish uploads the video and returns its id
func (y *YouTube) Publish(ctx context.Context, video io.Reader, size int64, meta Metadata) (string, error) {
	log.Printf("📤 Uploading to YouTube: %q (%.2f MB)", meta.Title, float64(size)/(1024*1024))

	v := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	resp, err := y.service.Videos.Insert([]string{"snippet", "status"}, v).Media(video).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	log.Printf("✅ Published https://youtube.com/watch?v=%s", resp.Id)
	return resp.Id, nil
}

// MetadataFor builds upload metadata for a deck title
func MetadataFor(title string, slides int) Metadata {
	if title == "" {
		title = "Slide presentation"
	}
	if r := []rune(title); len(r) > config.MaxTitleLength {
		title = string(r[:config.MaxTitleLength-3]) + "..."
	}
	return Metadata{
		Title:       title,
		Description: fmt.Sprintf("%s\n\nA narrated presentation of %d slides.", title, slides),
		Tags:        []string{"presentation", "slides"},
		CategoryID:  config.YouTubeCategoryID,
		Privacy:     config.YouTubePrivacyStatus,
	}
}
