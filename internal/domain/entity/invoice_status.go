package entity

import (
	"fmt"

	"github.com/jhoicas/facturacion-api/internal/domain"
)

// InvoiceStatus estado del ciclo de vida de una factura.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusIssued        InvoiceStatus = "issued"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPastDue       InvoiceStatus = "past_due"
	InvoiceStatusVoid          InvoiceStatus = "void"

	// InvoiceStatusDeleted es el destino de EventDelete: el agregado deja de existir.
	InvoiceStatusDeleted InvoiceStatus = "deleted"
)

// InvoiceStatuses lista los estados persistibles.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusIssued,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusPaid,
	InvoiceStatusPastDue,
	InvoiceStatusVoid,
}

// ParseInvoiceStatus valida un estado recibido como texto.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	for _, st := range InvoiceStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, s)
}

// IsTerminal paid y void no admiten más eventos.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// AcceptsPayments estados en los que un pago puede aplicarse.
func (s InvoiceStatus) AcceptsPayments() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartiallyPaid || s == InvoiceStatusPastDue
}

// InvoiceEvent evento que intenta mover la factura de estado.
type InvoiceEvent string

const (
	EventIssue          InvoiceEvent = "issue"
	EventPartialPayment InvoiceEvent = "partial_payment"
	EventFullPayment    InvoiceEvent = "full_payment"
	EventOverdue        InvoiceEvent = "overdue"
	EventVoid           InvoiceEvent = "void"
	EventDelete         InvoiceEvent = "delete"
)

// InvoiceEvents lista todos los eventos del ciclo de vida.
var InvoiceEvents = []InvoiceEvent{
	EventIssue, EventPartialPayment, EventFullPayment, EventOverdue, EventVoid, EventDelete,
}

type transitionKey struct {
	from  InvoiceStatus
	event InvoiceEvent
}

// transitions es la única fuente de verdad del ciclo de vida.
// Un pago parcial sobre past_due la mantiene vencida hasta saldarla.
var transitions = map[transitionKey]InvoiceStatus{
	{InvoiceStatusDraft, EventIssue}:  InvoiceStatusIssued,
	{InvoiceStatusDraft, EventDelete}: InvoiceStatusDeleted,

	{InvoiceStatusIssued, EventPartialPayment}: InvoiceStatusPartiallyPaid,
	{InvoiceStatusIssued, EventFullPayment}:    InvoiceStatusPaid,
	{InvoiceStatusIssued, EventOverdue}:        InvoiceStatusPastDue,
	{InvoiceStatusIssued, EventVoid}:           InvoiceStatusVoid,

	{InvoiceStatusPartiallyPaid, EventPartialPayment}: InvoiceStatusPartiallyPaid,
	{InvoiceStatusPartiallyPaid, EventFullPayment}:    InvoiceStatusPaid,
	{InvoiceStatusPartiallyPaid, EventOverdue}:        InvoiceStatusPastDue,
	{InvoiceStatusPartiallyPaid, EventVoid}:           InvoiceStatusVoid,

	{InvoiceStatusPastDue, EventPartialPayment}: InvoiceStatusPastDue,
	{InvoiceStatusPastDue, EventFullPayment}:    InvoiceStatusPaid,
	{InvoiceStatusPastDue, EventVoid}:           InvoiceStatusVoid,
}

// NextStatus devuelve el estado destino o *domain.TransitionError si el par no existe.
func NextStatus(from InvoiceStatus, event InvoiceEvent) (InvoiceStatus, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return "", &domain.TransitionError{Event: string(event), State: string(from)}
	}
	return to, nil
}
