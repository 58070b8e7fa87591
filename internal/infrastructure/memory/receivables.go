package memory

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.ReceivablesRepository = (*InvoiceRepo)(nil)

type statusKey struct {
	status   entity.InvoiceStatus
	currency string
}

type agingKey struct {
	bucket   entity.AgingBucket
	currency string
}

// TotalsByStatus agrega las facturas confirmadas del tenant por estado efectivo.
func (r *InvoiceRepo) TotalsByStatus(_ context.Context, tenantID string, asOf time.Time) ([]repository.StatusTotals, error) {
	acc := make(map[statusKey]*repository.StatusTotals)
	for _, inv := range r.snapshot() {
		if inv.TenantID != tenantID {
			continue
		}
		k := statusKey{status: inv.EffectiveStatus(asOf), currency: inv.Currency}
		row, ok := acc[k]
		if !ok {
			row = &repository.StatusTotals{Status: k.status, Currency: k.currency}
			acc[k] = row
		}
		row.Count++
		row.Total += inv.Total.Amount
		row.AmountDue += inv.AmountDue.Amount
	}
	out := make([]repository.StatusTotals, 0, len(acc))
	for _, row := range acc {
		out = append(out, *row)
	}
	return out, nil
}

// AgingTotals agrega el saldo pendiente del tenant por tramo de antigüedad.
func (r *InvoiceRepo) AgingTotals(_ context.Context, tenantID string, asOf time.Time) ([]repository.AgingTotals, error) {
	acc := make(map[agingKey]*repository.AgingTotals)
	for _, inv := range r.snapshot() {
		if inv.TenantID != tenantID || !inv.IsOutstanding() || inv.DueAt == nil {
			continue
		}
		k := agingKey{bucket: entity.AgingBucketFor(*inv.DueAt, asOf), currency: inv.Currency}
		row, ok := acc[k]
		if !ok {
			row = &repository.AgingTotals{Bucket: k.bucket, Currency: k.currency}
			acc[k] = row
		}
		row.Count++
		row.AmountDue += inv.AmountDue.Amount
	}
	out := make([]repository.AgingTotals, 0, len(acc))
	for _, row := range acc {
		out = append(out, *row)
	}
	return out, nil
}
