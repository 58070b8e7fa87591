package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.ReceivablesRepository = (*ReceivablesRepo)(nil)

// ReceivablesRepo consultas agregadas de cartera (read-only).
type ReceivablesRepo struct {
	q Querier
}

// NewReceivablesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceivablesRepository(q Querier) *ReceivablesRepo {
	return &ReceivablesRepo{q: q}
}

// TotalsByStatus el estado efectivo se deriva igual que entity.Invoice.EffectiveStatus.
func (r *ReceivablesRepo) TotalsByStatus(ctx context.Context, tenantID string, asOf time.Time) ([]repository.StatusTotals, error) {
	rows, err := r.q.Query(ctx, `
		SELECT
			CASE WHEN status IN ('issued', 'partially_paid') AND due_at < $2::timestamptz AND amount_due > 0
				THEN 'past_due' ELSE status END AS effective_status,
			currency,
			COUNT(*),
			COALESCE(SUM(total), 0)::bigint,
			COALESCE(SUM(amount_due), 0)::bigint
		FROM invoices
		WHERE tenant_id = $1
		GROUP BY 1, 2`, tenantID, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("totales por estado: %w", err)
	}
	defer rows.Close()

	var out []repository.StatusTotals
	for rows.Next() {
		var (
			row    repository.StatusTotals
			status string
		)
		if err := rows.Scan(&status, &row.Currency, &row.Count, &row.Total, &row.AmountDue); err != nil {
			return nil, err
		}
		row.Status = entity.InvoiceStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

// AgingTotals los tramos replican entity.AgingBucketFor (límites inclusivos).
func (r *ReceivablesRepo) AgingTotals(ctx context.Context, tenantID string, asOf time.Time) ([]repository.AgingTotals, error) {
	rows, err := r.q.Query(ctx, `
		SELECT
			CASE
				WHEN $2::timestamptz - due_at <= interval '0'       THEN 'current'
				WHEN $2::timestamptz - due_at <= interval '30 days' THEN '1_30'
				WHEN $2::timestamptz - due_at <= interval '60 days' THEN '31_60'
				WHEN $2::timestamptz - due_at <= interval '90 days' THEN '61_90'
				ELSE 'over_90'
			END AS bucket,
			currency,
			COUNT(*),
			COALESCE(SUM(amount_due), 0)::bigint
		FROM invoices
		WHERE tenant_id = $1
		  AND status IN ('issued', 'partially_paid', 'past_due')
		  AND amount_due > 0
		  AND due_at IS NOT NULL
		GROUP BY 1, 2`, tenantID, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("antigüedad de cartera: %w", err)
	}
	defer rows.Close()

	var out []repository.AgingTotals
	for rows.Next() {
		var (
			row    repository.AgingTotals
			bucket string
		)
		if err := rows.Scan(&bucket, &row.Currency, &row.Count, &row.AmountDue); err != nil {
			return nil, err
		}
		row.Bucket = entity.AgingBucket(bucket)
		out = append(out, row)
	}
	return out, rows.Err()
}
