package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas de un tenant.
type InvoiceFilter struct {
	TenantID    string
	Status      entity.InvoiceStatus // vacío = todos
	CustomerRef string
	Limit       int
	Offset      int
}

// InvoiceRepository define el puerto de persistencia del agregado Invoice
// (cabecera, líneas y pagos se leen y escriben juntos).
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID carga el agregado completo sin bloquear.
	GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	// GetForUpdate carga el agregado y bloquea la fila de la factura hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	// Save persiste cabecera, líneas y pagos. Falla con domain.ErrVersionConflict si
	// invoice.Version no coincide con la almacenada; en éxito incrementa invoice.Version.
	Save(ctx context.Context, invoice *entity.Invoice) error
	// Delete elimina físicamente un borrador y sus líneas.
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, int, error)
	// ListOverdueIDs devuelve facturas issued/partially_paid con due_at < now y saldo > 0.
	ListOverdueIDs(ctx context.Context, now time.Time, limit int) ([]OverdueRef, error)
}

// OverdueRef identifica una factura candidata al barrido de vencidas.
type OverdueRef struct {
	TenantID  string
	InvoiceID string
}

// InvoiceSequenceRepository consecutivo de numeración por tenant y año.
type InvoiceSequenceRepository interface {
	// Next reserva el siguiente consecutivo dentro de la transacción en curso.
	Next(ctx context.Context, tenantID string, year int) (int64, error)
}
