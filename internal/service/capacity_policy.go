package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
)

// Поддерживается только часовая сетка
var supportedSlotMinutes = map[int]bool{60: true}

// CapacityPolicy читает вместимость услуг и рабочую сетку из настроек.
// Кэша нет: каждый вызов идёт в хранилище.
type CapacityPolicy struct {
	settings SettingsStore
}

func NewCapacityPolicy(settings SettingsStore) *CapacityPolicy {
	return &CapacityPolicy{settings: settings}
}

// Capacity возвращает вместимость одного слота услуги
func (p *CapacityPolicy) Capacity(ctx context.Context, service string) (int, error) {
	raw, ok, err := p.settings.Get(ctx, model.CapacitySettingKey(service))
	if err != nil {
		return 0, fmt.Errorf("get capacity: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", model.ErrUnknownService, service)
	}

	capacity, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse capacity of %s: %w", service, err)
	}
	return capacity, nil
}

// SlotGrid возвращает рабочую сетку слотов
func (p *CapacityPolicy) SlotGrid(ctx context.Context) (model.SlotGrid, error) {
	startHour, err := p.intSetting(ctx, model.SettingWorkStartHour)
	if err != nil {
		return model.SlotGrid{}, err
	}
	endHour, err := p.intSetting(ctx, model.SettingWorkEndHour)
	if err != nil {
		return model.SlotGrid{}, err
	}
	slotMinutes, err := p.intSetting(ctx, model.SettingSlotMinutes)
	if err != nil {
		return model.SlotGrid{}, err
	}

	grid := model.SlotGrid{StartHour: startHour, EndHour: endHour, SlotMinutes: slotMinutes}

	if !supportedSlotMinutes[slotMinutes] {
		return model.SlotGrid{}, fmt.Errorf("%w: slot_minutes=%d", model.ErrUnsupportedGrid, slotMinutes)
	}
	if startHour < 0 || endHour > 23 || startHour > endHour {
		return model.SlotGrid{}, fmt.Errorf("%w: hours %d..%d", model.ErrUnsupportedGrid, startHour, endHour)
	}

	return grid, nil
}

// Services возвращает известные услуги, отсортированные по ключу
func (p *CapacityPolicy) Services(ctx context.Context) ([]model.Service, error) {
	settings, err := p.settings.List(ctx, model.CapacityKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	services := make([]model.Service, 0, len(settings))
	for key, raw := range settings {
		name, ok := model.ServiceFromSettingKey(key)
		if !ok {
			continue
		}
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse capacity of %s: %w", name, err)
		}
		services = append(services, model.Service{Key: name, Capacity: capacity})
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].Key < services[j].Key
	})

	return services, nil
}

func (p *CapacityPolicy) intSetting(ctx context.Context, key string) (int, error) {
	raw, ok, err := p.settings.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("get setting %s: %w", key, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s is not set", model.ErrUnsupportedGrid, key)
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", model.ErrUnsupportedGrid, key, raw)
	}
	return value, nil
}
