package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/vitaltrace-ai/platform/pkg/alerts"
	"github.com/vitaltrace-ai/platform/pkg/common/config"
	"github.com/vitaltrace-ai/platform/pkg/common/database"
	"github.com/vitaltrace-ai/platform/pkg/common/kafka"
	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := alerts.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate alert tables")
	}

	consumer := kafka.NewConsumer(cfg.FlagEventTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down Alert Worker...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.FlagEventTopic).Info("Alert Worker started")

	err = consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		if event.Type != models.EventFlagRaised {
			return nil
		}
		rec := &alerts.FlagRecord{
			ID:        uuid.New().String(),
			ThreadID:  stringField(event.Data, "thread_id"),
			PatientID: stringField(event.Data, "patient_id"),
			Code:      stringField(event.Data, "code"),
			Severity:  stringField(event.Data, "severity"),
			Rule:      stringField(event.Data, "rule"),
			Evidence:  stringField(event.Data, "evidence"),
			CreatedAt: event.Timestamp,
		}
		return repo.CreateFlag(ctx, rec)
	})
	if err != nil && err != context.Canceled {
		logger.Log.WithError(err).Error("consumer stopped")
	}

	database.ClosePostgres()
	logger.Log.Info("Alert Worker stopped")
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
