package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrid(t *testing.T) {
	markup := NewBuilder().
		Grid(3,
			Button("10:00", "time:10:00"),
			Button("11:00", "time:11:00"),
			Button("12:00", "time:12:00"),
			Button("13:00", "time:13:00"),
			Button("14:00", "time:14:00"),
		).
		Row(Button("❌ Отмена", "confirm:no")).
		Build()

	if assert.Len(t, markup.InlineKeyboard, 3) {
		assert.Len(t, markup.InlineKeyboard[0], 3)
		assert.Len(t, markup.InlineKeyboard[1], 2)
		assert.Equal(t, "time:13:00", markup.InlineKeyboard[1][0].CallbackData)
		assert.Equal(t, "confirm:no", markup.InlineKeyboard[2][0].CallbackData)
	}
}

func TestEmptyRowsSkipped(t *testing.T) {
	markup := NewBuilder().Row().Grid(0).Build()
	assert.Empty(t, markup.InlineKeyboard)
}
