package entity

import (
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/money"
)

// EventType tipo de notificación emitida tras una transición.
type EventType string

const (
	EventTypeIssued  EventType = "invoice.issued"
	EventTypePaid    EventType = "invoice.paid"
	EventTypePastDue EventType = "invoice.past_due"
	EventTypeVoid    EventType = "invoice.void"
)

// DomainEvent notificación de cambio de estado; se publica después del commit.
type DomainEvent struct {
	Type       EventType     `json:"type"`
	InvoiceID  string        `json:"invoice_id"`
	TenantID   string        `json:"tenant_id"`
	Number     string        `json:"number"`
	Status     InvoiceStatus `json:"status"`
	Total      money.Money   `json:"total"`
	AmountPaid money.Money   `json:"amount_paid"`
	AmountDue  money.Money   `json:"amount_due"`
	OccurredAt time.Time     `json:"occurred_at"`
}
