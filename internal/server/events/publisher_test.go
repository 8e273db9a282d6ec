package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote/memory"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type failingLedger struct {
	*memory.Store
}

func (failingLedger) AppendSale(context.Context, string, models.Sale) error {
	return errors.New("ledger down")
}

func sale() models.Sale {
	return models.Sale{
		Timestamp:     time.Date(2024, 7, 1, 10, 0, 0, 5000, time.UTC),
		FinalPrice:    decimal.RequireFromString("12.40"),
		PaymentMethod: "card",
		LineItems:     []models.LineItem{{Barcode: "1", Quantity: 2}},
	}
}

func TestAppendSale_PublishesKeyedByShop(t *testing.T) {
	backend := memory.New()
	w := &fakeWriter{}
	p := NewSalePublisher(backend, w, logging.Nop())

	require.NoError(t, p.AppendSale(context.Background(), "Main Street", sale()))

	stored, err := backend.QuerySales(context.Background(), "Main Street", 0, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "Main Street", string(msg.Key))
	assert.Equal(t, sale().Timestamp.Truncate(time.Microsecond), msg.Time)

	var ev SaleRecorded
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "Main Street", ev.Shop)
	assert.Equal(t, "2024-07-01T10:00:00.000005Z", ev.Timestamp)
	assert.True(t, ev.FinalPrice.Equal(decimal.RequireFromString("12.4")))
	assert.Equal(t, 1, ev.Items)
}

func TestAppendSale_PublishFailureIsNotReturned(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewSalePublisher(memory.New(), w, logging.Nop())

	assert.NoError(t, p.AppendSale(context.Background(), "A", sale()))
}

func TestAppendSale_LedgerFailureSkipsPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewSalePublisher(failingLedger{memory.New()}, w, logging.Nop())

	assert.Error(t, p.AppendSale(context.Background(), "A", sale()))
	assert.Empty(t, w.msgs)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewSalePublisher(memory.New(), w, logging.Nop()).Close())
	assert.True(t, w.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "sales")
	assert.Equal(t, "sales", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
