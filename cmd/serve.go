package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slidecast/api"

	"github.com/spf13/cobra"
)

var (
	servePort   string
	serveEvents bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP export API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := newService(ctx, serveEvents)
		if err != nil {
			return err
		}
		defer svc.close()

		runCtx, cancelRun := context.WithCancel(context.Background())
		svc.manager.Start(runCtx)

		srv := &http.Server{
			Addr:              ":" + servePort,
			Handler:           api.NewRouter(svc.manager, newRegistry()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "🎞  slidecast export service\n")
		fmt.Fprintf(cmd.OutOrStdout(), "   API:     http://0.0.0.0:%s\n", servePort)
		fmt.Fprintf(cmd.OutOrStdout(), "   Codecs:  video=%v audio=%v\n", videoCodecs, audioCodecs)
		fmt.Fprintf(cmd.OutOrStdout(), "   Output:  %s\n", settings.OutputDir)
		fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to shutdown")

		select {
		case err := <-errCh:
			cancelRun()
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}

		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		cancelRun()
		svc.manager.Wait()
		log.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", settings.Port, "HTTP API port")
	serveCmd.Flags().BoolVar(&serveEvents, "events", false, "publish completion events to EXPORT_EVENTS_TOPIC")
	rootCmd.AddCommand(serveCmd)
}
