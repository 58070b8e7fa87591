package billing

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// InvoiceTxRunner ejecuta fn dentro de una transacción con los repositorios de facturación
// atados a ella. Si fn retorna error se hace rollback; la implementación puede reintentar
// fn completo ante conflictos de concurrencia, por lo que fn no debe tener efectos externos.
type InvoiceTxRunner interface {
	RunInvoice(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		sequenceRepo repository.InvoiceSequenceRepository,
	) error) error
}

// EventPublisher notifica transiciones (issued, paid, past_due, void). Se invoca después del commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.DomainEvent) error
}
