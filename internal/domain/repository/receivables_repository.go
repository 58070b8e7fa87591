package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// StatusTotals resultado crudo de facturas agrupadas por estado efectivo y moneda.
// Montos en unidades menores de Currency.
type StatusTotals struct {
	Status    entity.InvoiceStatus
	Currency  string
	Count     int
	Total     int64
	AmountDue int64
}

// AgingTotals saldo pendiente agrupado por tramo de antigüedad y moneda.
type AgingTotals struct {
	Bucket    entity.AgingBucket
	Currency  string
	Count     int
	AmountDue int64
}

// ReceivablesRepository consultas de solo lectura sobre la cartera de un tenant.
type ReceivablesRepository interface {
	// TotalsByStatus agrupa por estado efectivo en asOf: las vencidas aún no barridas cuentan como past_due.
	TotalsByStatus(ctx context.Context, tenantID string, asOf time.Time) ([]StatusTotals, error)

	// AgingTotals agrupa las facturas con saldo (issued, partially_paid, past_due)
	// según entity.AgingBucketFor(due_at, asOf).
	AgingTotals(ctx context.Context, tenantID string, asOf time.Time) ([]AgingTotals, error)
}
