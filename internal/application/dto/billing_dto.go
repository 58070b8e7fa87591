package dto

import (
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices.
// Currency y NetTermsDays vacíos toman los valores por defecto de configuración.
type CreateInvoiceRequest struct {
	CustomerRef  string `json:"customer_ref" validate:"required,max=120"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	TaxBehavior  string `json:"tax_behavior,omitempty" validate:"omitempty,oneof=exclusive inclusive"`
	NetTermsDays *int   `json:"net_terms_days,omitempty" validate:"omitempty,min=0,max=3650"`
	Memo         string `json:"memo,omitempty" validate:"max=500"`
}

// TaxRateRequest instantánea de tasa enviada por el servicio de configuración.
// Rate es fracción: 0.19 = 19%.
type TaxRateRequest struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name" validate:"required,max=60"`
	Rate decimal.Decimal `json:"rate"`
}

// DiscountRequest instantánea de descuento. Amount en unidades mayores (fixed), Percent fracción (percentage).
type DiscountRequest struct {
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name" validate:"required,max=60"`
	Kind    string          `json:"kind" validate:"required,oneof=fixed percentage"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// LineItemRequest body para POST/PUT de líneas. UnitPrice en unidades mayores (ej. 10.50).
type LineItemRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TaxRate     *TaxRateRequest  `json:"tax_rate,omitempty" validate:"omitempty"`
	Discount    *DiscountRequest `json:"discount,omitempty" validate:"omitempty"`
}

// VoidInvoiceRequest body para POST /api/invoices/:id/void.
type VoidInvoiceRequest struct {
	Reason string `json:"reason"`
}

// RecordPaymentRequest body para POST /api/invoices/:id/payments.
// Con Settle=true el pago se registra y se aplica en la misma operación.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,max=40"`
	Reference string          `json:"reference,omitempty" validate:"max=120"`
	Settle    bool            `json:"settle,omitempty"`
}

// FailPaymentRequest body para POST /api/invoices/:id/payments/:pid/fail.
type FailPaymentRequest struct {
	Code    string `json:"code" validate:"required,max=60"`
	Message string `json:"message,omitempty" validate:"max=500"`
}

// ListInvoicesRequest query de GET /api/invoices.
type ListInvoicesRequest struct {
	PageRequest
	Status      string `query:"status" validate:"omitempty,oneof=draft issued partially_paid paid past_due void"`
	CustomerRef string `query:"customer_ref"`
}

// InvoiceResponse proyección de solo lectura de la factura (para UI o renderizador de PDF).
type InvoiceResponse struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	CustomerRef     string             `json:"customer_ref"`
	Number          string             `json:"number,omitempty"`
	Currency        string             `json:"currency"`
	TaxBehavior     string             `json:"tax_behavior"`
	Status          string             `json:"status"`
	EffectiveStatus string             `json:"effective_status"`
	Memo            string             `json:"memo,omitempty"`
	NetTermsDays    int                `json:"net_terms_days"`
	Subtotal        money.Money        `json:"subtotal"`
	DiscountTotal   money.Money        `json:"discount_total"`
	TaxTotal        money.Money        `json:"tax_total"`
	Total           money.Money        `json:"total"`
	AmountPaid      money.Money        `json:"amount_paid"`
	AmountDue       money.Money        `json:"amount_due"`
	IssuedAt        *time.Time         `json:"issued_at,omitempty"`
	DueAt           *time.Time         `json:"due_at,omitempty"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	VoidedAt        *time.Time         `json:"voided_at,omitempty"`
	VoidReason      string             `json:"void_reason,omitempty"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	LineItems       []LineItemResponse `json:"line_items"`
	Payments        []PaymentResponse  `json:"payments"`
}

// LineItemResponse línea con sus montos calculados.
type LineItemResponse struct {
	ID             string           `json:"id"`
	Position       int              `json:"position"`
	Description    string           `json:"description"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UnitAmount     money.Money      `json:"unit_amount"`
	TaxRate        *TaxRateRequest  `json:"tax_rate,omitempty"`
	Discount       *DiscountRequest `json:"discount,omitempty"`
	Subtotal       money.Money      `json:"subtotal"`
	DiscountAmount money.Money      `json:"discount_amount"`
	TaxAmount      money.Money      `json:"tax_amount"`
	Total          money.Money      `json:"total"`
}

// PaymentResponse registro del libro de pagos.
type PaymentResponse struct {
	ID             string      `json:"id"`
	Amount         money.Money `json:"amount"`
	Status         string      `json:"status"`
	Method         string      `json:"method,omitempty"`
	Reference      string      `json:"reference,omitempty"`
	FailureCode    string      `json:"failure_code,omitempty"`
	FailureMessage string      `json:"failure_message,omitempty"`
	AttemptedAt    time.Time   `json:"attempted_at"`
	SucceededAt    *time.Time  `json:"succeeded_at,omitempty"`
	FailedAt       *time.Time  `json:"failed_at,omitempty"`
}

// InvoiceListResponse página de facturas.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// SweepResult resumen de una corrida del barrido de vencidas.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Marked  int `json:"marked"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
