package handlers

// Константы валидации диалога записи
const (
	NameMinLength  = 2
	NameMaxLength  = 100
	PhoneMinDigits = 7
	PhoneMaxDigits = 15

	// Сколько последних записей показывать в /admin
	AdminRecentLimit = 10
)

// Callback data. Значение идёт после двоеточия: "svc:fitness", "time:10:00".
const (
	CallbackBook          = "book"
	CallbackService       = "svc:"
	CallbackDate          = "date:"
	CallbackTime          = "time:"
	CallbackConfirm       = "confirm:"
	CallbackCancelBooking = "cancel_booking:" // cancel_booking:123
	CallbackConfirmCancel = "confirm_cancel:" // confirm_cancel:123
	CallbackAbort         = "abort"
	CallbackNoop          = "noop"
)

// Значения для CallbackDate и CallbackConfirm
const (
	DateToday    = "today"
	DateTomorrow = "tomorrow"
	DatePick     = "pick"

	ConfirmYes = "yes"
	ConfirmNo  = "no"
)
