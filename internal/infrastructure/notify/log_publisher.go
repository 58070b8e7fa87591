package notify

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/rs/zerolog"
)

var _ billing.EventPublisher = (*LogPublisher)(nil)

// LogPublisher escribe los eventos en el log. Se usa cuando no hay broker configurado.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "notify").Logger()}
}

// Publish nunca falla.
func (p *LogPublisher) Publish(_ context.Context, events ...entity.DomainEvent) error {
	for _, e := range events {
		p.log.Info().
			Str("event", string(e.Type)).
			Str("tenant_id", e.TenantID).
			Str("invoice_id", e.InvoiceID).
			Str("number", e.Number).
			Str("amount_due", e.AmountDue.String()).
			Time("occurred_at", e.OccurredAt).
			Msg("evento de factura")
	}
	return nil
}
