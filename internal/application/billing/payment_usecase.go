package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// RecordPayment registra un intento de pago en pending. Con in.Settle el pago se aplica
// en la misma transacción (pagos manuales ya confirmados).
func (uc *InvoiceUseCase) RecordPayment(ctx context.Context, tenantID, invoiceID string, in dto.RecordPaymentRequest) (*dto.InvoiceResponse, error) {
	op := "record_payment_attempt"
	if in.Settle {
		op = "record_payment"
	}
	inv, err := uc.mutate(ctx, op, tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		amount, err := paymentAmount(inv.Currency, in)
		if err != nil {
			return err
		}
		if in.Settle {
			_, err = inv.RecordPayment(uc.newID(), amount, in.Method, in.Reference, now)
		} else {
			_, err = inv.RecordPaymentAttempt(uc.newID(), amount, in.Method, in.Reference, now)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// MarkPaymentSucceeded aplica un pago pendiente. El sobrepago se evalúa bajo el bloqueo
// de la factura: si se rechaza, el pago queda failed y persistido, y se devuelve
// domain.ErrOverpaymentRejected (o domain.ErrInvoiceNotIssued si la factura fue anulada).
func (uc *InvoiceUseCase) MarkPaymentSucceeded(ctx context.Context, tenantID, invoiceID, paymentID string) (*dto.InvoiceResponse, error) {
	var rejection error
	inv, err := uc.mutate(ctx, "mark_payment_succeeded", tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		rejection = nil
		_, err := inv.MarkPaymentSucceeded(paymentID, now)
		if errors.Is(err, domain.ErrOverpaymentRejected) || errors.Is(err, domain.ErrInvoiceNotIssued) {
			rejection = err
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		uc.log.Warn().Err(rejection).
			Str("tenant_id", tenantID).
			Str("invoice_id", invoiceID).
			Str("payment_id", paymentID).
			Msg("pago rechazado y marcado como fallido")
		return nil, rejection
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// MarkPaymentFailed cierra un pago pendiente como fallido. No cambia montos ni estado.
func (uc *InvoiceUseCase) MarkPaymentFailed(ctx context.Context, tenantID, invoiceID, paymentID string, in dto.FailPaymentRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "mark_payment_failed", tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		_, err := inv.MarkPaymentFailed(paymentID, in.Code, in.Message, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

var errNoLongerOverdue = errors.New("la factura ya no está vencida")

// SweepPastDue marca como past_due las facturas vencidas con saldo. Cada factura se
// procesa en su propia transacción; un fallo individual no detiene el barrido.
func (uc *InvoiceUseCase) SweepPastDue(ctx context.Context, limit int) (*dto.SweepResult, error) {
	if limit <= 0 {
		limit = 100
	}
	refs, err := uc.invoiceRepo.ListOverdueIDs(ctx, uc.now(), limit)
	if err != nil {
		return nil, err
	}
	res := &dto.SweepResult{Scanned: len(refs)}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := uc.mutate(ctx, "sweep_past_due", ref.TenantID, ref.InvoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
			if !inv.IsOverdue(now) {
				return errNoLongerOverdue
			}
			return inv.MarkPastDue(now)
		})
		switch {
		case err == nil:
			res.Marked++
		case errors.Is(err, errNoLongerOverdue), errors.Is(err, domain.ErrNotFound):
			res.Skipped++
		default:
			res.Failed++
		}
	}
	uc.log.Info().
		Int("scanned", res.Scanned).
		Int("marked", res.Marked).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("barrido de facturas vencidas")
	return res, nil
}
