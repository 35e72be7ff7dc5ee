package model

type OutcomeStatus string

const (
	OutcomeBooked OutcomeStatus = "booked"
	OutcomeFull   OutcomeStatus = "full"
)

// Outcome результат попытки записи.
// Заполненный слот - ожидаемый бизнес-исход, а не ошибка.
type Outcome struct {
	Status       OutcomeStatus `json:"status"`
	BookingID    int64         `json:"booking_id,omitempty"`
	EventID      string        `json:"event_id,omitempty"` // пусто если календарь не обновился
	Alternatives []string      `json:"available_times,omitempty"`
}

// Booked проверяет что запись создана
func (o *Outcome) Booked() bool {
	return o != nil && o.Status == OutcomeBooked
}
