package dto

import (
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/money"
)

// ReceivablesSummaryDTO respuesta de GET /api/receivables/summary.
// Los montos nunca se suman entre monedas: cada fila lleva la suya.
type ReceivablesSummaryDTO struct {
	AsOf time.Time `json:"as_of"`

	// Facturas por estado efectivo (past_due incluye las vencidas aún no barridas)
	ByStatus []StatusSummaryDTO `json:"by_status"`

	// Saldo pendiente por tramo de antigüedad
	Aging []AgingSummaryDTO `json:"aging"`

	// Saldo pendiente total, una entrada por moneda
	Outstanding []money.Money `json:"outstanding"`
}

// StatusSummaryDTO fila del resumen por estado.
type StatusSummaryDTO struct {
	Status    string      `json:"status"`
	Count     int         `json:"count"`
	Total     money.Money `json:"total"`
	AmountDue money.Money `json:"amount_due"`
}

// AgingSummaryDTO fila del resumen de antigüedad.
type AgingSummaryDTO struct {
	Bucket    string      `json:"bucket"` // current|1_30|31_60|61_90|over_90
	Count     int         `json:"count"`
	AmountDue money.Money `json:"amount_due"`
}
