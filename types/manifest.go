package types

// Manifest describes a deck to export. Asset references may be local paths,
// http(s) URLs or s3://bucket/key locations.
type Manifest struct {
	Title            string         `json:"title,omitempty" yaml:"title,omitempty"`
	Width            int            `json:"width" yaml:"width"`
	Height           int            `json:"height" yaml:"height"`
	IncludeSubtitles bool           `json:"include_subtitles" yaml:"include_subtitles"`
	Delay            DelayConfig    `json:"slide_delay" yaml:"slide_delay"`
	Style            *SubtitleStyle `json:"subtitle_style,omitempty" yaml:"subtitle_style,omitempty"`
	Background       string         `json:"background,omitempty" yaml:"background,omitempty"`
	Slides           []SlideSpec    `json:"slides" yaml:"slides"`
}

// SlideSpec is the manifest form of a Slide
type SlideSpec struct {
	ID        string `json:"id" yaml:"id"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
	Clip      string `json:"clip,omitempty" yaml:"clip,omitempty"`
	Narration string `json:"narration,omitempty" yaml:"narration,omitempty"`
	Script    string `json:"script,omitempty" yaml:"script,omitempty"`
	Subtitle  string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
}

// ExportRequest is the payload accepted over HTTP and Kafka
type ExportRequest struct {
	JobID    string   `json:"job_id,omitempty"`
	Manifest Manifest `json:"manifest"`
	// BaseURL resolves relative asset references
	BaseURL        string `json:"base_url,omitempty"`
	PublishYouTube bool   `json:"publish_youtube,omitempty"`
}
