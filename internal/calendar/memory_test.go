package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientWindow(t *testing.T) {
	client := NewMemoryClient()
	ctx := context.Background()
	base := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)

	inside, err := client.CreateEvent(ctx, "cal", Event{Summary: "a", Start: base, End: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = client.CreateEvent(ctx, "cal", Event{Summary: "b", Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, err = client.CreateEvent(ctx, "other", Event{Summary: "c", Start: base, End: base.Add(time.Hour)})
	require.NoError(t, err)

	events, err := client.ListEventsInWindow(ctx, "cal", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, inside, events[0].ID)

	require.NoError(t, client.UpdateEvent(ctx, "cal", inside, Event{Summary: "a2", Start: base, End: base.Add(time.Hour)}))
	require.NoError(t, client.DeleteEvent(ctx, "cal", inside))
	assert.Error(t, client.DeleteEvent(ctx, "cal", inside))

	creates, updates, deletes := client.Writes()
	assert.Equal(t, 3, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, deletes)
	assert.Len(t, client.Events("cal"), 1)
}

func TestMemoryClientInjectedError(t *testing.T) {
	client := NewMemoryClient()
	boom := errors.New("calendar unavailable")
	client.SetError(boom)

	_, err := client.CreateEvent(context.Background(), "cal", Event{})
	assert.ErrorIs(t, err, boom)

	client.SetError(nil)
	_, err = client.CreateEvent(context.Background(), "cal", Event{})
	assert.NoError(t, err)
}
