package model

import "strings"

const (
	CapacityKeyPrefix = "cap_"

	SettingWorkStartHour = "work_start_hour"
	SettingWorkEndHour   = "work_end_hour"
	SettingSlotMinutes   = "slot_minutes"
)

// Service услуга, на которую можно записаться
type Service struct {
	Key      string `json:"key"`
	Capacity int    `json:"capacity"`
}

// CapacitySettingKey возвращает ключ настройки вместимости услуги.
// Например: "padel-group" -> "cap_padel_group"
func CapacitySettingKey(service string) string {
	return CapacityKeyPrefix + strings.ReplaceAll(service, "-", "_")
}

// ServiceFromSettingKey обратное преобразование для ключей cap_*
func ServiceFromSettingKey(key string) (string, bool) {
	if !strings.HasPrefix(key, CapacityKeyPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(key, CapacityKeyPrefix)
	if name == "" {
		return "", false
	}
	return strings.ReplaceAll(name, "_", "-"), true
}
