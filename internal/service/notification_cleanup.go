package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
)

// NotificationCleaner удаление старых прочитанных уведомлений.
type NotificationCleaner interface {
	CleanupRead(ctx context.Context, retention time.Duration) (int64, error)
}

// NewCleanupScheduler регистрирует периодическую очистку уведомлений.
// Планировщик нужно запустить через Start и остановить через Stop.
func NewCleanupScheduler(cleaner NotificationCleaner, spec string, retention time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		deleted, err := cleaner.CleanupRead(ctx, retention)
		if err != nil {
			logger.Log.WithError(err).Error("notification cleanup: не удалось удалить уведомления")
			return
		}
		logger.Log.WithFields(logrus.Fields{
			"deleted":   deleted,
			"retention": retention.String(),
		}).Info("notification cleanup: завершено")
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup: некорректное расписание %q: %w", spec, err)
	}

	return c, nil
}

// cronLogger направляет сообщения cron в logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.WithFields(kvFields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
