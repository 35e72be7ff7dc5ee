package app

import (
	"context"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"go.uber.org/zap"
)

// За один проход сверяется не больше слотов, остальные ждут следующего тика
const reconcileBatchSize = 50

// SlotResyncer то, что планировщику нужно от сервиса записи
type SlotResyncer interface {
	PendingSlots(ctx context.Context, limit int) ([]model.SlotKey, error)
	Resync(ctx context.Context, key model.SlotKey) (string, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	resyncer SlotResyncer
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(resyncer SlotResyncer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		resyncer: resyncer,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Run сверяет календарь с журналом каждые interval до отмены ctx или Stop
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	// Первый запуск сразу при старте
	s.ReconcileOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ReconcileOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Calendar reconcile task stopped")
			return nil
		case <-ctx.Done():
			s.logger.Info("Calendar reconcile task cancelled")
			return nil
		}
	}
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// ReconcileOnce один проход по отстающим слотам. Возвращает число успешно сверенных.
func (s *Scheduler) ReconcileOnce(ctx context.Context) int {
	keys, err := s.resyncer.PendingSlots(ctx, reconcileBatchSize)
	if err != nil {
		s.logger.Error("Failed to list slots pending sync", zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	s.logger.Info("Reconciling calendar", zap.Int("slots", len(keys)))

	synced := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.resyncer.Resync(ctx, key); err != nil {
			s.logger.Warn("Slot resync failed",
				zap.String("slot", key.String()),
				zap.Error(err),
			)
			continue
		}
		synced++
	}

	s.logger.Info("Calendar reconcile completed",
		zap.Int("synced", synced),
		zap.Int("failed", len(keys)-synced),
	)
	return synced
}
