// Package events publishes recorded sales to Kafka for downstream consumers
// such as reporting and stock keeping.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/metrics"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const publishTimeout = 5 * time.Second

// SaleRecorded is the message value published for every stored sale.
type SaleRecorded struct {
	Shop          string          `json:"shop"`
	Timestamp     string          `json:"timestamp"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	PaymentMethod string          `json:"payment_method"`
	Items         int             `json:"items"`
}

// MessageWriter is implemented by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a synchronous writer that waits for all in-sync
// replicas.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

var _ remote.Admin = (*SalePublisher)(nil)

// SalePublisher decorates a remote.Admin and announces every successful
// AppendSale. The sale is already durable when publishing starts, so a
// publish failure is logged and counted but never returned.
type SalePublisher struct {
	remote.Admin
	w   MessageWriter
	log logging.Logger
}

func NewSalePublisher(next remote.Admin, w MessageWriter, l logging.Logger) *SalePublisher {
	return &SalePublisher{Admin: next, w: w, log: l.With("module", "sale_publisher")}
}

func (p *SalePublisher) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	if err := p.Admin.AppendSale(ctx, shop, sale); err != nil {
		return err
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.publish(pctx, shop, sale); err != nil {
		metrics.SaleEventsTotal.WithLabelValues("error").Inc()
		p.log.Error(ctx, "sale event not published", "shop", shop, "err", err)
		return nil
	}
	metrics.SaleEventsTotal.WithLabelValues("published").Inc()
	return nil
}

func (p *SalePublisher) publish(ctx context.Context, shop string, sale models.Sale) error {
	ts := models.SaleTime(sale.Timestamp)
	value, err := json.Marshal(SaleRecorded{
		Shop:          shop,
		Timestamp:     ts.Format(common.TimestampLayout),
		FinalPrice:    sale.FinalPrice,
		PaymentMethod: sale.PaymentMethod,
		Items:         len(sale.LineItems),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(shop),
		Value: value,
		Time:  ts,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *SalePublisher) Close() error {
	return p.w.Close()
}
