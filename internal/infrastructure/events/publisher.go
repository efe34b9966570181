// Package events publica en Kafka los movimientos confirmados del ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/Muestras-api/internal/application/inventory"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// Tipos de evento y origen.
const (
	EventMovementRecorded = "movement.recorded"
	AggregateProduct      = "product"
	Source                = "muestras-api"
)

const writeTimeout = 5 * time.Second

// Event sobre estándar de los mensajes.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	Data          json.RawMessage `json:"data"`
}

// MovementRecordedData payload de movement.recorded.
type MovementRecordedData struct {
	MovementID       int64     `json:"movement_id"`
	Tipo             string    `json:"tipo"`
	Cantidad         int64     `json:"cantidad"`
	CantidadAnterior int64     `json:"cantidad_anterior"`
	CantidadNueva    int64     `json:"cantidad_nueva"`
	Responsable      string    `json:"responsable"`
	Motivo           string    `json:"motivo"`
	FechaMovimiento  time.Time `json:"fecha_movimiento"`
	ProductID        int64     `json:"product_id"`
	ProductCodigo    string    `json:"product_codigo"`
	CountryID        int64     `json:"country_id"`
	CategoryID       int64     `json:"categoria_id"`
	UserID           int64     `json:"user_id"`
}

// MessageWriter lo que el publisher necesita de kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica un evento por movimiento, con el id del producto como clave
// para que los eventos de un producto conserven su orden en la partición.
type KafkaPublisher struct {
	writer MessageWriter
	log    zerolog.Logger
}

// NewWriter crea el writer de kafka-go para el tópico de movimientos.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaPublisher construye el publisher sobre un writer ya configurado.
func NewKafkaPublisher(writer MessageWriter, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log.With().Str("component", "events").Logger()}
}

// PublishMovement serializa y escribe el evento.
func (p *KafkaPublisher) PublishMovement(ctx context.Context, product *entity.Product, m *entity.Movement) error {
	evt, err := NewMovementRecorded(product, m)
	if err != nil {
		return err
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: value,
		Time:  evt.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.EventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}
	p.log.Debug().Str("event_id", evt.EventID).Int64("movement_id", m.ID).Msg("evento publicado")
	return nil
}

// Close cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewMovementRecorded arma el sobre de un movimiento confirmado.
func NewMovementRecorded(product *entity.Product, m *entity.Movement) (*Event, error) {
	data, err := json.Marshal(MovementRecordedData{
		MovementID:       m.ID,
		Tipo:             string(m.Type),
		Cantidad:         m.Quantity,
		CantidadAnterior: m.QuantityBefore,
		CantidadNueva:    m.QuantityAfter,
		Responsable:      m.Responsible,
		Motivo:           m.Reason,
		FechaMovimiento:  m.MovedAt,
		ProductID:        product.ID,
		ProductCodigo:    product.Code,
		CountryID:        product.CountryID,
		CategoryID:       product.CategoryID,
		UserID:           m.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal movement data: %w", err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     EventMovementRecorded,
		AggregateID:   strconv.FormatInt(product.ID, 10),
		AggregateType: AggregateProduct,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        Source,
		Data:          data,
	}, nil
}
