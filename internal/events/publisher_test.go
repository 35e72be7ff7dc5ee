package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeChannel struct {
	closed    bool
	exchange  string
	published []amqp.Publishing
	keys      []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.closed {
		return amqp.ErrClosed
	}
	c.exchange = exchange
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

// fakeBroker выдаёт новый канал на каждое подключение
type fakeBroker struct {
	channels []*fakeChannel
	conns    []*fakeConn
	down     bool
}

func (b *fakeBroker) dial(_, _ string) (io.Closer, amqpChannel, error) {
	if b.down {
		return nil, nil, errors.New("dial rabbitmq: connection refused")
	}
	conn, ch := &fakeConn{}, &fakeChannel{}
	b.conns = append(b.conns, conn)
	b.channels = append(b.channels, ch)
	return conn, ch, nil
}

func TestPublisherSendsPersistentJSON(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newPublisher("amqp://test", "bookings", broker.dial)
	require.NoError(t, err)

	require.NoError(t, p.PublishJSON(context.Background(), KeyBookingCreated, BookingEvent{BookingID: 3, Service: "fitness"}))

	require.Len(t, broker.channels, 1)
	ch := broker.channels[0]
	require.Len(t, ch.published, 1)
	assert.Equal(t, "bookings", ch.exchange)
	assert.Equal(t, KeyBookingCreated, ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.NotEmpty(t, msg.MessageId)

	var event BookingEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, int64(3), event.BookingID)
}

func TestPublisherReconnectsAfterChannelClosed(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newPublisher("amqp://test", "bookings", broker.dial)
	require.NoError(t, err)
	ctx := context.Background()

	// Брокер закрыл канал, а пока он недоступен, публикация возвращает ошибку
	broker.channels[0].closed = true
	broker.down = true
	assert.Error(t, p.PublishJSON(ctx, KeyBookingCancelled, BookingEvent{BookingID: 1}))
	assert.True(t, broker.conns[0].closed)

	broker.down = false
	require.NoError(t, p.PublishJSON(ctx, KeyBookingCancelled, BookingEvent{BookingID: 1}))
	require.NoError(t, p.PublishJSON(ctx, KeyBookingCancelled, BookingEvent{BookingID: 2}))

	require.Len(t, broker.channels, 2)
	assert.Empty(t, broker.channels[0].published)
	assert.Len(t, broker.channels[1].published, 2)

	require.NoError(t, p.Close())
	assert.True(t, broker.channels[1].closed)
	assert.True(t, broker.conns[1].closed)
}

func TestNewPublisherFailsWhenBrokerDown(t *testing.T) {
	broker := &fakeBroker{down: true}
	_, err := newPublisher("amqp://test", "bookings", broker.dial)
	assert.Error(t, err)
}
