package cmd

import (
	"context"
	"fmt"
	"log"

	"slidecast/common"
	"slidecast/encoder"
	"slidecast/jobs"
	"slidecast/orchestrator"
	"slidecast/pipeline"
	"slidecast/publish"
	"slidecast/shared/kafka"
)

func newRegistry() *encoder.Registry {
	return encoder.NewRegistry(videoCodecs, audioCodecs)
}

func newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(pipeline.NewFast(newRegistry()), pipeline.NewLegacy())
}

// newS3 returns nil when no bucket or region is configured
func newS3(ctx context.Context) (*common.S3, error) {
	if settings.S3Bucket == "" && settings.S3Region == "" {
		return nil, nil
	}
	return common.NewS3(ctx, common.S3Config{
		Region:       settings.S3Region,
		Profile:      settings.S3Profile,
		Endpoint:     settings.S3Endpoint,
		UsePathStyle: settings.S3UsePathStyle,
	})
}

func newUploader(s3c *common.S3) *jobs.S3Uploader {
	if s3c == nil || settings.S3Bucket == "" {
		return nil
	}
	return &jobs.S3Uploader{S3: s3c, Bucket: settings.S3Bucket, Prefix: settings.S3Prefix}
}

func newPublisher(ctx context.Context) (*publish.YouTube, error) {
	if settings.YouTubeCredentials == "" {
		return nil, nil
	}
	return publish.NewYouTube(ctx, settings.YouTubeCredentials)
}

// service holds the collaborators shared by serve and consume
type service struct {
	manager  *jobs.Manager
	mirror   *jobs.RedisMirror
	producer *kafka.Producer
}

func newService(ctx context.Context, withEvents bool) (*service, error) {
	s3c, err := newS3(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	opts := jobs.Options{
		Exporter:  newOrchestrator(),
		S3:        s3c,
		OutputDir: settings.OutputDir,
	}
	if u := newUploader(s3c); u != nil {
		opts.Uploader = u
		log.Printf("☁️  Uploading exports to s3://%s/%s", settings.S3Bucket, settings.S3Prefix)
	}

	yt, err := newPublisher(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	if yt != nil {
		opts.Publisher = yt
	}

	svc := &service{}
	if settings.RedisAddr != "" {
		svc.mirror, err = jobs.NewRedisMirror(jobs.RedisConfig{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		opts.Mirror = svc.mirror
		log.Printf("🗄️  Mirroring job status to redis at %s", settings.RedisAddr)
	}

	if withEvents {
		svc.producer, err = kafka.NewProducer(settings.KafkaBrokers, settings.KafkaEventsTopic)
		if err != nil {
			svc.close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		opts.Notifier = svc.producer
	}

	svc.manager = jobs.NewManager(opts)
	return svc, nil
}

func (s *service) close() {
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Printf("Kafka producer close error: %v", err)
		}
	}
	if s.mirror != nil {
		_ = s.mirror.Close()
	}
}
