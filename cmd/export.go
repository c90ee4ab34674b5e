package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"slidecast/demo/tui"
	"slidecast/jobs"
	"slidecast/media"
	"slidecast/orchestrator"
	"slidecast/publish"
	"slidecast/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	exportOutput  string
	exportTUI     bool
	exportUpload  bool
	exportPublish bool
	exportNoSubs  bool
	exportWidth   int
	exportHeight  int
)

var exportCmd = &cobra.Command{
	Use:   "export <manifest>",
	Short: "Export a deck manifest (JSON or YAML) to a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runExport(ctx, args[0])
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default: <manifest>.<container>)")
	exportCmd.Flags().BoolVar(&exportTUI, "tui", false, "show an interactive progress view")
	exportCmd.Flags().BoolVar(&exportUpload, "s3-upload", false, "upload the result to S3_BUCKET")
	exportCmd.Flags().BoolVar(&exportPublish, "publish-youtube", false, "publish the result with YOUTUBE_CREDENTIALS")
	exportCmd.Flags().BoolVar(&exportNoSubs, "no-subtitles", false, "disable subtitles regardless of the manifest")
	exportCmd.Flags().IntVar(&exportWidth, "width", 0, "override output width")
	exportCmd.Flags().IntVar(&exportHeight, "height", 0, "override output height")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, manifestPath string) error {
	m, err := media.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	if exportWidth > 0 && exportHeight > 0 {
		m.Width, m.Height = exportWidth, exportHeight
	}
	if exportNoSubs {
		m.IncludeSubtitles = false
	}
	if err := media.Validate(m); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	s3c, err := newS3(ctx)
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	fetcher := media.NewFetcher(filepath.Dir(manifestPath), s3c)
	defer fetcher.Cleanup()

	log.Printf("🎬 Loading %d slides from %s", len(m.Slides), manifestPath)
	slides, err := media.BuildSlides(ctx, m, fetcher)
	if err != nil {
		return err
	}
	req := orchestrator.RequestFor(m, slides)
	orch := newOrchestrator()

	var res *orchestrator.Result
	if exportTUI {
		res, err = exportWithTUI(ctx, orch, req, titleOf(m, manifestPath))
	} else {
		req.Progress = logProgress()
		res, err = orch.Export(ctx, req)
	}
	if err != nil {
		return err
	}
	if len(res.Data) == 0 {
		log.Println("Nothing to export: the deck has no slides")
		return nil
	}

	out := outputPath(exportOutput, manifestPath, res.Container)
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	log.Printf("✅ Wrote %s (%.2f MB, %v, %s pipeline)", out, float64(len(res.Data))/(1024*1024), res.Duration, res.Pipeline)

	if exportUpload {
		u := newUploader(s3c)
		if u == nil {
			return fmt.Errorf("--s3-upload requires S3_BUCKET and S3_REGION")
		}
		loc, err := u.Upload(ctx, filepath.Base(out), bytes.NewReader(res.Data), jobs.ContentType(res.Container))
		if err != nil {
			return err
		}
		log.Printf("☁️  Uploaded to %s", loc)
	}
	if exportPublish {
		yt, err := newPublisher(ctx)
		if err != nil {
			return err
		}
		if yt == nil {
			return fmt.Errorf("--publish-youtube requires YOUTUBE_CREDENTIALS")
		}
		if _, err := yt.Publish(ctx, bytes.NewReader(res.Data), int64(len(res.Data)), publish.MetadataFor(m.Title, len(slides))); err != nil {
			return err
		}
	}
	return nil
}

func exportWithTUI(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.Request, title string) (*orchestrator.Result, error) {
	p := tea.NewProgram(tui.NewLocalModel(title), tea.WithContext(ctx))
	req.Progress = func(pct float64, status string) { p.Send(tui.ProgressMsg{Percent: pct, Status: status}) }
	req.OnState = func(s types.ExportState) { p.Send(tui.StateMsg{State: s}) }

	var res *orchestrator.Result
	var exportErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, exportErr = orch.Export(ctx, req)
		msg := tui.DoneMsg{Err: exportErr}
		if exportErr == nil {
			msg.Result = &tui.Result{Pipeline: res.Pipeline, Size: len(res.Data)}
		}
		p.Send(msg)
	}()

	// log output would corrupt the view
	log.SetOutput(io.Discard)
	_, runErr := p.Run()
	log.SetOutput(os.Stderr)

	<-done
	if exportErr != nil {
		return nil, exportErr
	}
	if runErr != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("running TUI: %w", runErr)
	}
	return res, nil
}

// logProgress logs every tenth percent
func logProgress() types.ProgressFunc {
	last := -1
	return func(pct float64, status string) {
		if step := int(pct) / 10; step > last {
			last = step
			log.Printf("⏳ %3.0f%% %s", pct, status)
		}
	}
}

// outputPath picks the output file, forcing the extension to match the container
func outputPath(requested, manifestPath, container string) string {
	if requested == "" {
		base := strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath))
		return base + "." + container
	}
	ext := filepath.Ext(requested)
	if strings.EqualFold(strings.TrimPrefix(ext, "."), container) {
		return requested
	}
	fixed := strings.TrimSuffix(requested, ext) + "." + container
	log.Printf("⚠️  Output is %s, writing %s instead of %s", container, fixed, requested)
	return fixed
}

func titleOf(m *types.Manifest, manifestPath string) string {
	if m.Title != "" {
		return m.Title
	}
	return filepath.Base(manifestPath)
}
