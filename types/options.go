package types

import (
	"time"

	"slidecast/config"
)

// SubtitleStyle configures the subtitle overlay
type SubtitleStyle struct {
	FontSize          float64 `json:"font_size" yaml:"font_size"`
	FontFamily        string  `json:"font_family" yaml:"font_family"`
	FontPath          string  `json:"font_path,omitempty" yaml:"font_path,omitempty"`
	TextColor         string  `json:"text_color" yaml:"text_color"`
	BackgroundColor   string  `json:"background_color" yaml:"background_color"`
	BackgroundOpacity float64 `json:"background_opacity" yaml:"background_opacity"`
	// Position is the vertical center of the subtitle box, in percent of height
	Position float64 `json:"position" yaml:"position"`
}

// DefaultSubtitleStyle returns the built-in subtitle look
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontSize:          config.DefaultFontSize,
		FontFamily:        config.DefaultFontFamily,
		TextColor:         config.DefaultTextColor,
		BackgroundColor:   config.DefaultBackgroundColor,
		BackgroundOpacity: config.DefaultBackgroundOpacity,
		Position:          config.DefaultSubtitlePosition,
	}
}

// WithDefaults fills zero-valued fields from DefaultSubtitleStyle.
// Opacity is kept as given since zero is meaningful.
func (s SubtitleStyle) WithDefaults() SubtitleStyle {
	d := DefaultSubtitleStyle()
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if s.FontFamily == "" {
		s.FontFamily = d.FontFamily
	}
	if s.TextColor == "" {
		s.TextColor = d.TextColor
	}
	if s.BackgroundColor == "" {
		s.BackgroundColor = d.BackgroundColor
	}
	if s.Position <= 0 || s.Position > 100 {
		s.Position = d.Position
	}
	if s.BackgroundOpacity < 0 {
		s.BackgroundOpacity = 0
	}
	if s.BackgroundOpacity > 1 {
		s.BackgroundOpacity = 1
	}
	return s
}

// DelayConfig is the trailing gap inserted after every slide but the last
type DelayConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Seconds float64 `json:"seconds" yaml:"seconds"`
}

// Duration returns the effective delay, zero when disabled
func (d DelayConfig) Duration() time.Duration {
	if !d.Enabled || d.Seconds <= 0 {
		return 0
	}
	return time.Duration(d.Seconds * float64(time.Second))
}

// ProgressFunc receives a percentage in [0, 100] and a status message
type ProgressFunc func(percent float64, status string)
