package entity

import (
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
)

// PaymentStatus estado de un intento de pago.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Códigos de falla asignados por el propio motor.
const (
	FailureCodeOverpayment      = "overpayment_rejected"
	FailureCodeInvoiceNotIssued = "invoice_not_issued"
)

// Payment registro del libro de pagos. Solo se agrega; pending pasa a succeeded o failed una vez.
type Payment struct {
	ID             string
	InvoiceID      string
	Amount         money.Money
	Status         PaymentStatus
	Method         string
	Reference      string
	FailureCode    string
	FailureMessage string
	AttemptedAt    time.Time
	SucceededAt    *time.Time
	FailedAt       *time.Time
}

func (p *Payment) succeed(now time.Time) error {
	if p.Status != PaymentStatusPending {
		return &domain.TransitionError{Event: "payment_succeeded", State: string(p.Status)}
	}
	p.Status = PaymentStatusSucceeded
	p.SucceededAt = &now
	return nil
}

func (p *Payment) fail(code, message string, now time.Time) error {
	if p.Status != PaymentStatusPending {
		return &domain.TransitionError{Event: "payment_failed", State: string(p.Status)}
	}
	p.Status = PaymentStatusFailed
	p.FailureCode = code
	p.FailureMessage = message
	p.FailedAt = &now
	return nil
}

func (p *Payment) clone() *Payment {
	c := *p
	if p.SucceededAt != nil {
		t := *p.SucceededAt
		c.SucceededAt = &t
	}
	if p.FailedAt != nil {
		t := *p.FailedAt
		c.FailedAt = &t
	}
	return &c
}
