package cmd

import (
	"os"

	"slidecast/common"
	"slidecast/config"

	"github.com/spf13/cobra"
)

var (
	settings    = config.Load()
	videoCodecs []string
	audioCodecs []string
)

var rootCmd = &cobra.Command{
	Use:   "slidecast",
	Short: "Export slide decks to narrated, subtitled video",
	Long: "slidecast renders an ordered deck of images and clips with optional narration " +
		"into a single MP4 (or AVI) file, preferring fast offline encoding and falling back " +
		"to real-time capture when no encoder is available.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.FFmpegPath = settings.FFmpegPath
		if !cmd.Flags().Changed("video-codecs") {
			videoCodecs = settings.VideoCodecs
		}
		if !cmd.Flags().Changed("audio-codecs") {
			audioCodecs = settings.AudioCodecs
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&videoCodecs, "video-codecs", settings.VideoCodecs, "video codecs in preference order (avc, mjpeg)")
	rootCmd.PersistentFlags().StringSliceVar(&audioCodecs, "audio-codecs", settings.AudioCodecs, "audio codecs in preference order (aac, pcm)")
	rootCmd.PersistentFlags().StringVar(&settings.FFmpegPath, "ffmpeg", settings.FFmpegPath, "path to the ffmpeg binary")
}
