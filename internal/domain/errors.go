package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del motor de facturación y conciliación de pagos.
var (
	ErrCurrencyMismatch       = errors.New("las monedas no coinciden")
	ErrInvalidLineItem        = errors.New("línea de factura inválida")
	ErrInvoiceNotEditable     = errors.New("la factura no es editable fuera de borrador")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrInvoiceNotIssued       = errors.New("la factura no está emitida")
	ErrOverpaymentRejected    = errors.New("el pago excede el saldo pendiente")
	ErrReasonRequired         = errors.New("el motivo de anulación es obligatorio")
	ErrAmountOutOfRange       = errors.New("monto fuera del rango representable")
	// ErrInvariantViolation es interno: nunca se persiste un agregado que lo produzca.
	ErrInvariantViolation = errors.New("violación de invariante interna")
	// ErrVersionConflict lo devuelve el repositorio cuando otra transacción ganó la carrera.
	ErrVersionConflict = errors.New("conflicto de versión")
)

// TransitionError nombra el evento intentado y el estado actual.
// errors.Is(err, ErrInvalidStateTransition) es verdadero.
type TransitionError struct {
	Event string
	State string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: evento %q no permitido en estado %q", ErrInvalidStateTransition.Error(), e.Event, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// InvariantError describe qué invariante se rompió; envuelve ErrInvariantViolation.
func InvariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
