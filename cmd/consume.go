package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"slidecast/jobs"
	"slidecast/shared/kafka"
	"slidecast/types"

	"github.com/spf13/cobra"
)

var consumeFromOldest bool

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run exports requested on Kafka and publish completion events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := newService(ctx, true)
		if err != nil {
			return err
		}
		defer svc.close()

		runCtx, cancelRun := context.WithCancel(context.Background())
		defer cancelRun()
		svc.manager.Start(runCtx)

		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:    settings.KafkaBrokers,
			Topic:      settings.KafkaRequestsTopic,
			GroupID:    settings.KafkaGroupID,
			Handler:    requestHandler(svc.manager),
			FromOldest: consumeFromOldest,
		})
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()

		log.Printf("🔗 Kafka Brokers: %v", settings.KafkaBrokers)
		log.Printf("📋 Requests: %s, events: %s", settings.KafkaRequestsTopic, settings.KafkaEventsTopic)
		log.Printf("👥 Consumer Group: %s", settings.KafkaGroupID)
		if err := consumer.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		log.Println("Shutting down...")
		cancelRun()
		svc.manager.Wait()
		return nil
	},
}

// requestHandler submits valid requests; a full queue leaves the message
// unmarked for redelivery
func requestHandler(jm *jobs.Manager) *kafka.TypedMessageHandler[types.ExportRequest] {
	return &kafka.TypedMessageHandler[types.ExportRequest]{
		Validate: func(r *types.ExportRequest) bool {
			if len(r.Manifest.Slides) == 0 {
				log.Printf("⚠️  Skipping export request %q with no slides", r.JobID)
				return false
			}
			return true
		},
		Process: func(_ context.Context, r *types.ExportRequest) error {
			id, err := jm.Submit(*r, "")
			if errors.Is(err, jobs.ErrQueueFull) {
				return err
			}
			if err != nil {
				log.Printf("❌ Rejected export request %q: %v", r.JobID, err)
				return nil
			}
			log.Printf("📥 Queued export %s", id)
			return nil
		},
		AlwaysMark: true,
	}
}

func init() {
	consumeCmd.Flags().BoolVar(&consumeFromOldest, "from-oldest", false, "start a new consumer group at the oldest offset")
	rootCmd.AddCommand(consumeCmd)
}
