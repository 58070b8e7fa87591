package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Cabecera, líneas y pagos se escriben juntos; los montos viajan como BIGINT en unidades menores.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id::text, tenant_id, customer_ref, currency, tax_behavior, status, number, memo, net_terms_days,
	subtotal, discount_total, tax_total, total, amount_paid, amount_due,
	issued_at, due_at, paid_at, voided_at, void_reason, version, created_at, updated_at`

const lineColumns = `id::text, invoice_id::text, position, description, quantity, unit_amount,
	tax_rate_id, tax_rate_name, tax_rate,
	discount_id, discount_name, discount_kind, discount_fixed, discount_percent,
	subtotal, discount_amount, tax_amount, total, created_at, updated_at`

const paymentColumns = `id::text, invoice_id::text, amount, currency, status, method, reference,
	failure_code, failure_message, attempted_at, succeeded_at, failed_at`

// Create inserta la cabecera y sus hijos.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `INSERT INTO invoices (
		id, tenant_id, customer_ref, currency, tax_behavior, status, number, memo, net_terms_days,
		subtotal, discount_total, tax_total, total, amount_paid, amount_due,
		issued_at, due_at, paid_at, voided_at, void_reason, version, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`
	if inv.Version == 0 {
		inv.Version = 1
	}
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.CustomerRef, inv.Currency, string(inv.TaxBehavior), string(inv.Status),
		nullIfEmpty(inv.Number), inv.Memo, inv.NetTermsDays,
		inv.Subtotal.Amount, inv.DiscountTotal.Amount, inv.TaxTotal.Amount, inv.Total.Amount,
		inv.AmountPaid.Amount, inv.AmountDue.Amount,
		utcPtr(inv.IssuedAt), utcPtr(inv.DueAt), utcPtr(inv.PaidAt), utcPtr(inv.VoidedAt),
		nullIfEmpty(inv.VoidReason), inv.Version, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, inv.ID)
		}
		return fmt.Errorf("insertar factura: %w", err)
	}
	if err := r.replaceLines(ctx, inv); err != nil {
		return err
	}
	return r.upsertPayments(ctx, inv)
}

// GetByID carga el agregado completo sin bloqueo.
func (r *InvoiceRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	return r.get(ctx, tenantID, id, false)
}

// GetForUpdate carga el agregado con SELECT ... FOR UPDATE sobre la cabecera.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	return r.get(ctx, tenantID, id, true)
}

func (r *InvoiceRepo) get(ctx context.Context, tenantID, id string, forUpdate bool) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("leer factura: %w", err)
	}
	if err := r.loadChildren(ctx, []*entity.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// Save actualiza la cabecera con control de versión y sincroniza líneas (solo en borrador) y pagos.
func (r *InvoiceRepo) Save(ctx context.Context, inv *entity.Invoice) error {
	query := `UPDATE invoices SET
		customer_ref = $3, status = $4, number = $5, memo = $6, net_terms_days = $7,
		subtotal = $8, discount_total = $9, tax_total = $10, total = $11, amount_paid = $12, amount_due = $13,
		issued_at = $14, due_at = $15, paid_at = $16, voided_at = $17, void_reason = $18,
		updated_at = $19, version = version + 1
	WHERE tenant_id = $1 AND id = $2 AND version = $20`
	tag, err := r.q.Exec(ctx, query,
		inv.TenantID, inv.ID,
		inv.CustomerRef, string(inv.Status), nullIfEmpty(inv.Number), inv.Memo, inv.NetTermsDays,
		inv.Subtotal.Amount, inv.DiscountTotal.Amount, inv.TaxTotal.Amount, inv.Total.Amount,
		inv.AmountPaid.Amount, inv.AmountDue.Amount,
		utcPtr(inv.IssuedAt), utcPtr(inv.DueAt), utcPtr(inv.PaidAt), utcPtr(inv.VoidedAt), nullIfEmpty(inv.VoidReason),
		inv.UpdatedAt, inv.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s", domain.ErrDuplicate, inv.Number)
		}
		return fmt.Errorf("actualizar factura: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: factura %s versión %d", domain.ErrVersionConflict, inv.ID, inv.Version)
	}
	// Las líneas de una factura emitida no se vuelven a escribir.
	if inv.Status == entity.InvoiceStatusDraft {
		if err := r.replaceLines(ctx, inv); err != nil {
			return err
		}
	}
	if err := r.upsertPayments(ctx, inv); err != nil {
		return err
	}
	inv.Version++
	return nil
}

// Delete elimina un borrador; las líneas caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE tenant_id = $1 AND id = $2 AND status = 'draft'`, tenantID, id)
	if err != nil {
		if isInvalidText(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("eliminar factura: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: borrador %s", domain.ErrNotFound, id)
	}
	return nil
}

// List devuelve una página de facturas del tenant y el total sin paginar.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	query := `SELECT ` + invoiceColumns + `, count(*) OVER ()
		FROM invoices
		WHERE tenant_id = $1
		  AND ($2::text = '' OR status = $2)
		  AND ($3::text = '' OR customer_ref = $3)
		ORDER BY created_at DESC, id
		LIMIT $4 OFFSET $5`
	rows, err := r.q.Query(ctx, query, f.TenantID, string(f.Status), f.CustomerRef, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listar facturas: %w", err)
	}
	defer rows.Close()

	var (
		list  []*entity.Invoice
		total int
	)
	for rows.Next() {
		inv, err := scanInvoice(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadChildren(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListOverdueIDs candidatas al barrido: vencidas, con saldo y aún no marcadas.
func (r *InvoiceRepo) ListOverdueIDs(ctx context.Context, now time.Time, limit int) ([]repository.OverdueRef, error) {
	rows, err := r.q.Query(ctx, `
		SELECT tenant_id, id::text FROM invoices
		WHERE status IN ('issued', 'partially_paid') AND due_at < $1 AND amount_due > 0
		ORDER BY due_at
		LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("listar vencidas: %w", err)
	}
	defer rows.Close()

	var refs []repository.OverdueRef
	for rows.Next() {
		var ref repository.OverdueRef
		if err := rows.Scan(&ref.TenantID, &ref.InvoiceID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ---------------------------------------------------------------------------
// Hijos: líneas y pagos
// ---------------------------------------------------------------------------

func (r *InvoiceRepo) replaceLines(ctx context.Context, inv *entity.Invoice) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("borrar líneas: %w", err)
	}
	if len(inv.LineItems) == 0 {
		return nil
	}
	const insert = `INSERT INTO invoice_line_items (
		id, invoice_id, position, description, quantity, unit_amount,
		tax_rate_id, tax_rate_name, tax_rate,
		discount_id, discount_name, discount_kind, discount_fixed, discount_percent,
		subtotal, discount_amount, tax_amount, total, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

	batch := &pgx.Batch{}
	for _, li := range inv.LineItems {
		var (
			taxID, taxName             *string
			taxRate                    decimal.NullDecimal
			discID, discName, discKind *string
			discFixed                  *int64
			discPercent                decimal.NullDecimal
		)
		if li.TaxRate != nil {
			taxID, taxName = nullIfEmpty(li.TaxRate.ID), &li.TaxRate.Name
			taxRate = decimal.NewNullDecimal(li.TaxRate.Rate)
		}
		if d := li.Discount; d != nil {
			kind := string(d.Kind)
			discID, discName, discKind = nullIfEmpty(d.ID), &d.Name, &kind
			if d.Kind == entity.DiscountFixed {
				amount := d.Amount.Amount
				discFixed = &amount
			} else {
				discPercent = decimal.NewNullDecimal(d.Percent)
			}
		}
		batch.Queue(insert,
			li.ID, inv.ID, li.Position, li.Description, li.Quantity, li.UnitAmount.Amount,
			taxID, taxName, taxRate,
			discID, discName, discKind, discFixed, discPercent,
			li.Subtotal.Amount, li.DiscountAmount.Amount, li.TaxAmount.Amount, li.Total.Amount,
			li.CreatedAt, li.UpdatedAt,
		)
	}
	return execBatch(ctx, r.q, batch, "insertar líneas")
}

// upsertPayments inserta pagos nuevos y cierra los pendientes; un pago ya cerrado no se reescribe.
func (r *InvoiceRepo) upsertPayments(ctx context.Context, inv *entity.Invoice) error {
	if len(inv.Payments) == 0 {
		return nil
	}
	const upsert = `INSERT INTO invoice_payments (
		id, invoice_id, amount, currency, status, method, reference,
		failure_code, failure_message, attempted_at, succeeded_at, failed_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		failure_code = EXCLUDED.failure_code,
		failure_message = EXCLUDED.failure_message,
		succeeded_at = EXCLUDED.succeeded_at,
		failed_at = EXCLUDED.failed_at
	WHERE invoice_payments.status = 'pending'`

	batch := &pgx.Batch{}
	for _, p := range inv.Payments {
		batch.Queue(upsert,
			p.ID, inv.ID, p.Amount.Amount, p.Amount.Currency, string(p.Status), p.Method, p.Reference,
			nullIfEmpty(p.FailureCode), nullIfEmpty(p.FailureMessage),
			p.AttemptedAt, utcPtr(p.SucceededAt), utcPtr(p.FailedAt),
		)
	}
	return execBatch(ctx, r.q, batch, "guardar pagos")
}

func execBatch(ctx context.Context, q Querier, batch *pgx.Batch, what string) error {
	br := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (r *InvoiceRepo) loadChildren(ctx context.Context, invoices []*entity.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Invoice, len(invoices))
	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
		inv.LineItems = inv.LineItems[:0]
		inv.Payments = inv.Payments[:0]
	}

	rows, err := r.q.Query(ctx, `SELECT `+lineColumns+` FROM invoice_line_items
		WHERE invoice_id = ANY($1::text[]::uuid[]) ORDER BY invoice_id, position`, ids)
	if err != nil {
		return fmt.Errorf("leer líneas: %w", err)
	}
	for rows.Next() {
		li, err := scanLineItem(rows, byID)
		if err != nil {
			rows.Close()
			return err
		}
		inv := byID[li.InvoiceID]
		inv.LineItems = append(inv.LineItems, li)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.Query(ctx, `SELECT `+paymentColumns+` FROM invoice_payments
		WHERE invoice_id = ANY($1::text[]::uuid[]) ORDER BY invoice_id, attempted_at, id`, ids)
	if err != nil {
		return fmt.Errorf("leer pagos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return err
		}
		inv := byID[p.InvoiceID]
		inv.Payments = append(inv.Payments, p)
	}
	return rows.Err()
}

// ---------------------------------------------------------------------------
// Scan
// ---------------------------------------------------------------------------

func scanInvoice(row pgx.Row, extra ...any) (*entity.Invoice, error) {
	var (
		inv                                       entity.Invoice
		taxBehavior, status                       string
		number, voidReason                        *string
		subtotal, discount, tax, total, paid, due int64
	)
	dest := []any{
		&inv.ID, &inv.TenantID, &inv.CustomerRef, &inv.Currency, &taxBehavior, &status, &number, &inv.Memo, &inv.NetTermsDays,
		&subtotal, &discount, &tax, &total, &paid, &due,
		&inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.VoidedAt, &voidReason, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	inv.TaxBehavior = entity.TaxBehavior(taxBehavior)
	inv.Status = entity.InvoiceStatus(status)
	inv.Number = derefString(number)
	inv.VoidReason = derefString(voidReason)
	inv.Subtotal = money.New(subtotal, inv.Currency)
	inv.DiscountTotal = money.New(discount, inv.Currency)
	inv.TaxTotal = money.New(tax, inv.Currency)
	inv.Total = money.New(total, inv.Currency)
	inv.AmountPaid = money.New(paid, inv.Currency)
	inv.AmountDue = money.New(due, inv.Currency)
	return &inv, nil
}

func scanLineItem(rows pgx.Rows, byID map[string]*entity.Invoice) (*entity.LineItem, error) {
	var (
		li                                         entity.LineItem
		unit, subtotal, discount, tax, total       int64
		taxID, taxName, discID, discName, discKind *string
		taxRate, discPercent                       decimal.NullDecimal
		discFixed                                  *int64
	)
	if err := rows.Scan(
		&li.ID, &li.InvoiceID, &li.Position, &li.Description, &li.Quantity, &unit,
		&taxID, &taxName, &taxRate,
		&discID, &discName, &discKind, &discFixed, &discPercent,
		&subtotal, &discount, &tax, &total, &li.CreatedAt, &li.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan línea: %w", err)
	}
	inv, ok := byID[li.InvoiceID]
	if !ok {
		return nil, domain.InvariantError("línea %s de factura no solicitada %s", li.ID, li.InvoiceID)
	}
	currency := inv.Currency
	li.UnitAmount = money.New(unit, currency)
	li.Subtotal = money.New(subtotal, currency)
	li.DiscountAmount = money.New(discount, currency)
	li.TaxAmount = money.New(tax, currency)
	li.Total = money.New(total, currency)
	if taxName != nil {
		li.TaxRate = &entity.TaxRate{ID: derefString(taxID), Name: *taxName, Rate: taxRate.Decimal}
	}
	if discKind != nil {
		d := &entity.Discount{ID: derefString(discID), Name: derefString(discName), Kind: entity.DiscountKind(*discKind)}
		if discFixed != nil {
			d.Amount = money.New(*discFixed, currency)
		}
		if discPercent.Valid {
			d.Percent = discPercent.Decimal
		}
		li.Discount = d
	}
	return &li, nil
}

func scanPayment(rows pgx.Rows) (*entity.Payment, error) {
	var (
		p                           entity.Payment
		amount                      int64
		currency, status            string
		failureCode, failureMessage *string
	)
	if err := rows.Scan(
		&p.ID, &p.InvoiceID, &amount, &currency, &status, &p.Method, &p.Reference,
		&failureCode, &failureMessage, &p.AttemptedAt, &p.SucceededAt, &p.FailedAt,
	); err != nil {
		return nil, fmt.Errorf("scan pago: %w", err)
	}
	p.Amount = money.New(amount, currency)
	p.Status = entity.PaymentStatus(status)
	p.FailureCode = derefString(failureCode)
	p.FailureMessage = derefString(failureMessage)
	return &p, nil
}
