package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
)

// AvailabilityService подсказывает свободные времена. Ответ носит
// рекомендательный характер: окончательную проверку делает журнал при записи.
type AvailabilityService struct {
	policy *CapacityPolicy
	ledger Ledger
}

func NewAvailabilityService(policy *CapacityPolicy, ledger Ledger) *AvailabilityService {
	return &AvailabilityService{policy: policy, ledger: ledger}
}

// AvailableTimes возвращает времена сетки, где занято меньше вместимости
func (s *AvailabilityService) AvailableTimes(ctx context.Context, service, date string) ([]string, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q", model.ErrInvalidSlot, date)
	}

	capacity, err := s.policy.Capacity(ctx, service)
	if err != nil {
		return nil, err
	}

	grid, err := s.policy.SlotGrid(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.ledger.CountActiveByTime(ctx, service, date)
	if err != nil {
		return nil, fmt.Errorf("available times: %w", err)
	}

	available := make([]string, 0, len(grid.Times()))
	for _, t := range grid.Times() {
		if counts[t] < capacity {
			available = append(available, t)
		}
	}

	return available, nil
}
