package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
)

// Invoice agregado de factura: cabecera, líneas y libro de pagos.
// Los totales son derivados; solo los asigna Recompute o el libro de pagos.
type Invoice struct {
	ID           string
	TenantID     string
	CustomerRef  string
	Currency     string
	TaxBehavior  TaxBehavior
	Status       InvoiceStatus
	Number       string // vacío mientras está en borrador
	Memo         string
	NetTermsDays int

	Subtotal      money.Money
	DiscountTotal money.Money
	TaxTotal      money.Money
	Total         money.Money
	AmountPaid    money.Money
	AmountDue     money.Money

	IssuedAt   *time.Time
	DueAt      *time.Time
	PaidAt     *time.Time
	VoidedAt   *time.Time
	VoidReason string

	LineItems []*LineItem
	Payments  []*Payment

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	events []DomainEvent
}

// NewInvoiceParams datos para crear un borrador.
type NewInvoiceParams struct {
	ID           string
	TenantID     string
	CustomerRef  string
	Currency     string
	TaxBehavior  TaxBehavior
	NetTermsDays int
	Memo         string
	Now          time.Time
}

// NewInvoice crea una factura en borrador con totales en cero.
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if strings.TrimSpace(p.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant requerido", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(p.CustomerRef) == "" {
		return nil, fmt.Errorf("%w: customer_ref requerido", domain.ErrInvalidInput)
	}
	currency := money.NormalizeCurrency(p.Currency)
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	behavior := p.TaxBehavior
	if behavior == "" {
		behavior = TaxExclusive
	}
	if !behavior.Valid() {
		return nil, fmt.Errorf("%w: tax_behavior %q", domain.ErrInvalidInput, behavior)
	}
	if p.NetTermsDays < 0 {
		return nil, fmt.Errorf("%w: net_terms_days negativo", domain.ErrInvalidInput)
	}
	zero := money.Zero(currency)
	return &Invoice{
		ID:            p.ID,
		TenantID:      p.TenantID,
		CustomerRef:   strings.TrimSpace(p.CustomerRef),
		Currency:      currency,
		TaxBehavior:   behavior,
		Status:        InvoiceStatusDraft,
		Memo:          p.Memo,
		NetTermsDays:  p.NetTermsDays,
		Subtotal:      zero,
		DiscountTotal: zero,
		TaxTotal:      zero,
		Total:         zero,
		AmountPaid:    zero,
		AmountDue:     zero,
		CreatedAt:     p.Now,
		UpdatedAt:     p.Now,
	}, nil
}

// ---------------------------------------------------------------------------
// Totales
// ---------------------------------------------------------------------------

// Totals agregados de las líneas de una factura.
type Totals struct {
	Subtotal      money.Money
	DiscountTotal money.Money
	TaxTotal      money.Money
	Total         money.Money
}

// ComputeTotals suma las líneas. Es pura: mismas líneas, mismos totales.
// En modo inclusivo el impuesto ya está dentro del subtotal y no se suma al total.
func ComputeTotals(currency string, behavior TaxBehavior, lines []*LineItem) (Totals, error) {
	t := Totals{
		Subtotal:      money.Zero(currency),
		DiscountTotal: money.Zero(currency),
		TaxTotal:      money.Zero(currency),
	}
	var err error
	for _, li := range lines {
		if t.Subtotal, err = t.Subtotal.Add(li.Subtotal); err != nil {
			return Totals{}, err
		}
		if t.DiscountTotal, err = t.DiscountTotal.Add(li.DiscountAmount); err != nil {
			return Totals{}, err
		}
		if t.TaxTotal, err = t.TaxTotal.Add(li.TaxAmount); err != nil {
			return Totals{}, err
		}
	}
	if t.Subtotal.IsNegative() || t.DiscountTotal.IsNegative() || t.TaxTotal.IsNegative() {
		return Totals{}, domain.InvariantError("totales negativos (subtotal=%d descuento=%d impuesto=%d)",
			t.Subtotal.Amount, t.DiscountTotal.Amount, t.TaxTotal.Amount)
	}
	if t.Total, err = t.Subtotal.Sub(t.DiscountTotal); err != nil {
		return Totals{}, err
	}
	if behavior != TaxInclusive {
		if t.Total, err = t.Total.Add(t.TaxTotal); err != nil {
			return Totals{}, err
		}
	}
	if t.Total.IsNegative() {
		return Totals{}, domain.InvariantError("total negativo %d", t.Total.Amount)
	}
	return t, nil
}

// Recompute recalcula los totales desde las líneas y amount_due = total - amount_paid.
// Si falla, la factura queda intacta.
func (inv *Invoice) Recompute() error {
	t, err := ComputeTotals(inv.Currency, inv.TaxBehavior, inv.LineItems)
	if err != nil {
		return err
	}
	return inv.assignTotals(t)
}

func (inv *Invoice) assignTotals(t Totals) error {
	due, err := t.Total.Sub(inv.AmountPaid)
	if err != nil {
		return err
	}
	if due.IsNegative() {
		return domain.InvariantError("amount_due negativo: total=%d pagado=%d", t.Total.Amount, inv.AmountPaid.Amount)
	}
	inv.Subtotal = t.Subtotal
	inv.DiscountTotal = t.DiscountTotal
	inv.TaxTotal = t.TaxTotal
	inv.Total = t.Total
	inv.AmountDue = due
	return nil
}

// CheckInvariants verifica la consistencia completa del agregado antes de persistirlo.
func (inv *Invoice) CheckInvariants() error {
	t, err := ComputeTotals(inv.Currency, inv.TaxBehavior, inv.LineItems)
	if err != nil {
		return err
	}
	if t.Subtotal != inv.Subtotal || t.DiscountTotal != inv.DiscountTotal ||
		t.TaxTotal != inv.TaxTotal || t.Total != inv.Total {
		return domain.InvariantError("totales desactualizados en factura %s", inv.ID)
	}

	paid := money.Zero(inv.Currency)
	for _, p := range inv.Payments {
		if p.Status != PaymentStatusSucceeded {
			continue
		}
		if paid, err = paid.Add(p.Amount); err != nil {
			return err
		}
	}
	if paid != inv.AmountPaid {
		return domain.InvariantError("amount_paid=%d no coincide con pagos exitosos=%d", inv.AmountPaid.Amount, paid.Amount)
	}
	due, err := inv.Total.Sub(inv.AmountPaid)
	if err != nil {
		return err
	}
	if due != inv.AmountDue || due.IsNegative() {
		return domain.InvariantError("amount_due=%d esperado=%d", inv.AmountDue.Amount, due.Amount)
	}
	if (inv.Number == "") != (inv.Status == InvoiceStatusDraft) {
		return domain.InvariantError("número %q inconsistente con estado %s", inv.Number, inv.Status)
	}
	if inv.Status == InvoiceStatusVoid && strings.TrimSpace(inv.VoidReason) == "" {
		return domain.InvariantError("factura anulada sin motivo")
	}
	if inv.Status == InvoiceStatusPaid && !inv.AmountDue.IsZero() {
		return domain.InvariantError("factura pagada con saldo %d", inv.AmountDue.Amount)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Líneas (solo en borrador)
// ---------------------------------------------------------------------------

func (inv *Invoice) ensureEditable() error {
	if inv.Status != InvoiceStatusDraft {
		return fmt.Errorf("%w: estado %s", domain.ErrInvoiceNotEditable, inv.Status)
	}
	return nil
}

// withLines recalcula sobre un conjunto candidato y solo lo adopta si todo es válido.
func (inv *Invoice) withLines(lines []*LineItem, now time.Time) error {
	t, err := ComputeTotals(inv.Currency, inv.TaxBehavior, lines)
	if errors.Is(err, domain.ErrAmountOutOfRange) {
		return fmt.Errorf("%w: totales: %w", domain.ErrInvalidLineItem, err)
	}
	if err != nil {
		return err
	}
	if err := inv.assignTotals(t); err != nil {
		return err
	}
	inv.LineItems = lines
	inv.UpdatedAt = now
	return nil
}

func (inv *Invoice) nextPosition() int {
	pos := 0
	for _, li := range inv.LineItems {
		pos = max(pos, li.Position)
	}
	return pos + 1
}

func (inv *Invoice) lineIndex(lineID string) int {
	return slices.IndexFunc(inv.LineItems, func(li *LineItem) bool { return li.ID == lineID })
}

// FindLineItem busca una línea por id.
func (inv *Invoice) FindLineItem(lineID string) (*LineItem, error) {
	i := inv.lineIndex(lineID)
	if i < 0 {
		return nil, fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	return inv.LineItems[i], nil
}

// AddLineItem agrega una línea y recalcula la factura.
func (inv *Invoice) AddLineItem(id string, in LineItemInput, now time.Time) (*LineItem, error) {
	if err := inv.ensureEditable(); err != nil {
		return nil, err
	}
	if err := in.Validate(inv.Currency); err != nil {
		return nil, err
	}
	amounts, err := ComputeLine(in, inv.TaxBehavior)
	if err != nil {
		return nil, err
	}
	li := newLineItem(id, inv.ID, inv.nextPosition(), in, amounts, now)
	lines := append(slices.Clone(inv.LineItems), li)
	if err := inv.withLines(lines, now); err != nil {
		return nil, err
	}
	return li, nil
}

// UpdateLineItem reemplaza los datos de una línea existente y recalcula.
func (inv *Invoice) UpdateLineItem(lineID string, in LineItemInput, now time.Time) (*LineItem, error) {
	if err := inv.ensureEditable(); err != nil {
		return nil, err
	}
	i := inv.lineIndex(lineID)
	if i < 0 {
		return nil, fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	if err := in.Validate(inv.Currency); err != nil {
		return nil, err
	}
	amounts, err := ComputeLine(in, inv.TaxBehavior)
	if err != nil {
		return nil, err
	}
	updated := inv.LineItems[i].clone()
	updated.apply(in, amounts, now)
	lines := slices.Clone(inv.LineItems)
	lines[i] = updated
	if err := inv.withLines(lines, now); err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveLineItem quita una línea y recalcula.
func (inv *Invoice) RemoveLineItem(lineID string, now time.Time) error {
	if err := inv.ensureEditable(); err != nil {
		return err
	}
	i := inv.lineIndex(lineID)
	if i < 0 {
		return fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	lines := slices.Delete(slices.Clone(inv.LineItems), i, i+1)
	return inv.withLines(lines, now)
}

// ---------------------------------------------------------------------------
// Ciclo de vida
// ---------------------------------------------------------------------------

// Issue emite la factura: asigna número, fechas y congela las líneas.
// Requiere al menos una línea y total > 0.
func (inv *Invoice) Issue(number string, now time.Time) error {
	to, err := NextStatus(inv.Status, EventIssue)
	if err != nil {
		return err
	}
	if len(inv.LineItems) == 0 || !inv.Total.IsPositive() {
		return &domain.TransitionError{Event: string(EventIssue), State: string(inv.Status)}
	}
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("%w: número de factura vacío", domain.ErrInvalidInput)
	}
	issued := now.UTC()
	due := issued.AddDate(0, 0, inv.NetTermsDays)
	inv.Number = number
	inv.IssuedAt = &issued
	inv.DueAt = &due
	inv.Status = to
	inv.UpdatedAt = now
	inv.record(EventTypeIssued, now)
	return nil
}

// EnsureDeletable solo los borradores se eliminan físicamente.
func (inv *Invoice) EnsureDeletable() error {
	_, err := NextStatus(inv.Status, EventDelete)
	return err
}

// Void anula la factura. No revierte pagos: amount_paid y amount_due quedan para auditoría.
func (inv *Invoice) Void(reason string, now time.Time) error {
	to, err := NextStatus(inv.Status, EventVoid)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ErrReasonRequired
	}
	voided := now.UTC()
	inv.VoidReason = reason
	inv.VoidedAt = &voided
	inv.Status = to
	inv.UpdatedAt = now
	inv.record(EventTypeVoid, now)
	return nil
}

// IsOverdue indica si venció con saldo pendiente y aún no está marcada past_due.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status != InvoiceStatusIssued && inv.Status != InvoiceStatusPartiallyPaid {
		return false
	}
	return inv.DueAt != nil && now.After(*inv.DueAt) && inv.AmountDue.IsPositive()
}

// MarkPastDue aplica el evento overdue. Sin efecto monetario.
func (inv *Invoice) MarkPastDue(now time.Time) error {
	to, err := NextStatus(inv.Status, EventOverdue)
	if err != nil {
		return err
	}
	if !inv.IsOverdue(now) {
		return &domain.TransitionError{Event: string(EventOverdue), State: string(inv.Status)}
	}
	inv.Status = to
	inv.UpdatedAt = now
	inv.record(EventTypePastDue, now)
	return nil
}

// EffectiveStatus estado observado en now: past_due se deriva aunque el barrido no haya pasado.
func (inv *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if inv.IsOverdue(now) {
		return InvoiceStatusPastDue
	}
	return inv.Status
}

// ---------------------------------------------------------------------------
// Libro de pagos
// ---------------------------------------------------------------------------

// FindPayment busca un pago por id.
func (inv *Invoice) FindPayment(paymentID string) (*Payment, error) {
	for _, p := range inv.Payments {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: pago %s", domain.ErrNotFound, paymentID)
}

func (inv *Invoice) ensureIssued() error {
	if inv.Status == InvoiceStatusDraft || inv.Status == InvoiceStatusVoid {
		return fmt.Errorf("%w: estado %s", domain.ErrInvoiceNotIssued, inv.Status)
	}
	return nil
}

func (inv *Invoice) checkOverpayment(amount money.Money) error {
	over, err := amount.GreaterThan(inv.AmountDue)
	if err != nil {
		return err
	}
	if over {
		return fmt.Errorf("%w: pago %s, saldo %s", domain.ErrOverpaymentRejected, amount, inv.AmountDue)
	}
	return nil
}

// RecordPaymentAttempt registra un intento de pago en pending.
func (inv *Invoice) RecordPaymentAttempt(id string, amount money.Money, method, reference string, now time.Time) (*Payment, error) {
	if err := inv.ensureIssued(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: el monto del pago debe ser positivo", domain.ErrInvalidInput)
	}
	if amount.Currency != inv.Currency {
		return nil, fmt.Errorf("%w: pago en %s, factura en %s", domain.ErrCurrencyMismatch, amount.Currency, inv.Currency)
	}
	if err := inv.checkOverpayment(amount); err != nil {
		return nil, err
	}
	p := &Payment{
		ID:          id,
		InvoiceID:   inv.ID,
		Amount:      amount,
		Status:      PaymentStatusPending,
		Method:      strings.TrimSpace(method),
		Reference:   strings.TrimSpace(reference),
		AttemptedAt: now,
	}
	inv.Payments = append(inv.Payments, p)
	inv.UpdatedAt = now
	return p, nil
}

// MarkPaymentSucceeded aplica un pago pendiente al saldo.
//
// Si la factura ya no admite pagos o el monto supera amount_due, el pago queda
// failed con el código correspondiente, la factura no cambia y se devuelve
// ErrInvoiceNotIssued u ErrOverpaymentRejected. El llamador debe persistir
// ese pago fallido.
func (inv *Invoice) MarkPaymentSucceeded(paymentID string, now time.Time) (*Payment, error) {
	p, err := inv.FindPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != PaymentStatusPending {
		return nil, &domain.TransitionError{Event: "payment_succeeded", State: string(p.Status)}
	}

	if err := inv.ensureIssued(); err != nil {
		if ferr := p.fail(FailureCodeInvoiceNotIssued, err.Error(), now); ferr != nil {
			return nil, ferr
		}
		return p, err
	}
	if err := inv.checkOverpayment(p.Amount); err != nil {
		if ferr := p.fail(FailureCodeOverpayment, err.Error(), now); ferr != nil {
			return nil, ferr
		}
		return p, err
	}

	event := EventPartialPayment
	if p.Amount == inv.AmountDue {
		event = EventFullPayment
	}
	to, err := NextStatus(inv.Status, event)
	if err != nil {
		return nil, err
	}
	paid, err := inv.AmountPaid.Add(p.Amount)
	if err != nil {
		return nil, err
	}
	due, err := inv.AmountDue.Sub(p.Amount)
	if err != nil {
		return nil, err
	}

	if err := p.succeed(now); err != nil {
		return nil, err
	}
	inv.AmountPaid = paid
	inv.AmountDue = due
	inv.Status = to
	inv.UpdatedAt = now
	if to == InvoiceStatusPaid {
		paidAt := now.UTC()
		inv.PaidAt = &paidAt
		inv.record(EventTypePaid, now)
	}
	return p, nil
}

// MarkPaymentFailed cierra un pago pendiente como fallido. Sin efecto monetario.
func (inv *Invoice) MarkPaymentFailed(paymentID, code, message string, now time.Time) (*Payment, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: código de falla requerido", domain.ErrInvalidInput)
	}
	p, err := inv.FindPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.fail(code, strings.TrimSpace(message), now); err != nil {
		return nil, err
	}
	inv.UpdatedAt = now
	return p, nil
}

// RecordPayment registra y aplica en un solo paso un pago ya confirmado (efectivo, transferencia).
func (inv *Invoice) RecordPayment(id string, amount money.Money, method, reference string, now time.Time) (*Payment, error) {
	if _, err := inv.RecordPaymentAttempt(id, amount, method, reference, now); err != nil {
		return nil, err
	}
	return inv.MarkPaymentSucceeded(id, now)
}

// ---------------------------------------------------------------------------
// Eventos y copia
// ---------------------------------------------------------------------------

func (inv *Invoice) record(t EventType, now time.Time) {
	inv.events = append(inv.events, DomainEvent{
		Type:       t,
		InvoiceID:  inv.ID,
		TenantID:   inv.TenantID,
		Number:     inv.Number,
		Status:     inv.Status,
		Total:      inv.Total,
		AmountPaid: inv.AmountPaid,
		AmountDue:  inv.AmountDue,
		OccurredAt: now,
	})
}

// PullEvents devuelve y limpia los eventos pendientes de publicar.
func (inv *Invoice) PullEvents() []DomainEvent {
	out := inv.events
	inv.events = nil
	return out
}

// Clone copia profunda; los eventos pendientes no se copian.
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	c.IssuedAt = copyTime(inv.IssuedAt)
	c.DueAt = copyTime(inv.DueAt)
	c.PaidAt = copyTime(inv.PaidAt)
	c.VoidedAt = copyTime(inv.VoidedAt)
	c.LineItems = make([]*LineItem, len(inv.LineItems))
	for i, li := range inv.LineItems {
		c.LineItems[i] = li.clone()
	}
	c.Payments = make([]*Payment, len(inv.Payments))
	for i, p := range inv.Payments {
		c.Payments[i] = p.clone()
	}
	c.events = nil
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
