package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceSequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo consecutivo de facturas por tenant y año.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Debe recibir la tx de la emisión para
// que un rollback libere el número reservado.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa y devuelve el consecutivo; la fila queda bloqueada hasta el commit.
func (r *SequenceRepo) Next(ctx context.Context, tenantID string, year int) (int64, error) {
	const query = `
		INSERT INTO invoice_sequences (tenant_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, year)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value`
	var n int64
	if err := r.q.QueryRow(ctx, query, tenantID, year).Scan(&n); err != nil {
		return 0, fmt.Errorf("siguiente consecutivo: %w", err)
	}
	return n, nil
}
