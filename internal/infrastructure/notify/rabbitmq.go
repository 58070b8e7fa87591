// Package notify publica los eventos de factura después del commit.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var _ billing.EventPublisher = (*RabbitPublisher)(nil)

const (
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

// Channel subconjunto de *amqp.Channel que usa el publicador.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection conexión AMQP con un canal dedicado a publicar.
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// Dial abre la conexión reintentando con backoff exponencial mientras el broker arranca.
func Dial(ctx context.Context, uri string) (*Connection, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	var c Connection
	err := backoff.Retry(func() error {
		conn, err := amqp.DialConfig(uri, amqp.Config{
			Heartbeat: defaultHeartbeat,
			Locale:    defaultLocale,
			Dial:      amqp.DefaultDial(3 * time.Second),
		})
		if err != nil {
			return err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return err
		}
		c.conn, c.Channel = conn, ch
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("amqp: conectar: %w", err)
	}
	return &c, nil
}

// Close cierra canal y conexión.
func (c *Connection) Close() error {
	return errors.Join(c.Channel.Close(), c.conn.Close())
}

// RabbitPublisher publica cada evento en un exchange topic con routing key = tipo de evento.
type RabbitPublisher struct {
	ch       Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbitPublisher declara el exchange (topic, durable) y devuelve el publicador.
func NewRabbitPublisher(ch Channel, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	if exchange == "" {
		return nil, errors.New("amqp: exchange requerido")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqp: declarar exchange %s: %w", exchange, err)
	}
	return &RabbitPublisher{
		ch:       ch,
		exchange: exchange,
		log:      log.With().Str("component", "notify").Str("exchange", exchange).Logger(),
	}, nil
}

// Publish envía los eventos en orden. Sigue con los siguientes si uno falla y devuelve los errores unidos.
func (p *RabbitPublisher) Publish(ctx context.Context, events ...entity.DomainEvent) error {
	var errs []error
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		err = p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         body,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("publicar %s de %s: %w", e.Type, e.InvoiceID, err))
			continue
		}
		p.log.Debug().Str("event", string(e.Type)).Str("invoice_id", e.InvoiceID).Msg("evento publicado")
	}
	return errors.Join(errs...)
}
