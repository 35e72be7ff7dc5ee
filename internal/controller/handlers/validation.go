package handlers

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
)

var (
	errNameTooShort = errors.New("name too short")
	errNameTooLong  = errors.New("name too long")
	errPhoneShort   = errors.New("phone has too few digits")
	errPhoneLong    = errors.New("phone has too many digits")
	errDateFormat   = errors.New("date must be DD.MM.YYYY")
	errDateInPast   = errors.New("date is in the past")
)

// ValidateName проверяет имя клиента и возвращает его без пробелов по краям
func ValidateName(text string) (string, error) {
	name := strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(name); {
	case n < NameMinLength:
		return "", errNameTooShort
	case n > NameMaxLength:
		return "", errNameTooLong
	}
	return name, nil
}

// ValidatePhone считает только цифры, форматирование номера сохраняется как ввёл клиент
func ValidatePhone(text string) (string, error) {
	phone := strings.TrimSpace(text)
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	switch {
	case digits < PhoneMinDigits:
		return "", errPhoneShort
	case digits > PhoneMaxDigits:
		return "", errPhoneLong
	}
	return phone, nil
}

// ParseDate разбирает ДД.ММ.ГГГГ в зоне записи и не пускает прошедшие дни
func ParseDate(text string, now time.Time, loc *time.Location) (string, error) {
	day, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return "", errDateFormat
	}
	today := truncateDay(now.In(loc))
	if day.Before(today) {
		return "", errDateInPast
	}
	return day.Format(model.DateLayout), nil
}

// ResolveDate превращает кнопки "сегодня"/"завтра" в дату
func ResolveDate(choice string, now time.Time, loc *time.Location) (string, bool) {
	today := truncateDay(now.In(loc))
	switch choice {
	case DateToday:
		return today.Format(model.DateLayout), true
	case DateTomorrow:
		return today.AddDate(0, 0, 1).Format(model.DateLayout), true
	default:
		return "", false
	}
}

// FilterPastTimes убирает уже начавшиеся слоты, если дата сегодняшняя
func FilterPastTimes(date string, times []string, now time.Time, loc *time.Location) []string {
	local := now.In(loc)
	if date != local.Format(model.DateLayout) {
		return times
	}
	current := local.Format(model.TimeLayout)
	filtered := make([]string, 0, len(times))
	for _, t := range times {
		// HH:MM сравнивается лексикографически
		if t > current {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
