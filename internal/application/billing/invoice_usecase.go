package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Config parámetros de facturación del caso de uso.
type Config struct {
	NumberPrefix        string // prefijo del consecutivo: <PREFIX>-<YYYY>-<NNNNNN>
	DefaultCurrency     string
	DefaultNetTermsDays int
}

// Option personaliza el caso de uso (reloj e ids en tests).
type Option func(*InvoiceUseCase)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(uc *InvoiceUseCase) { uc.now = now }
}

// WithIDGenerator reemplaza el generador de ids.
func WithIDGenerator(newID func() string) Option {
	return func(uc *InvoiceUseCase) { uc.newID = newID }
}

// InvoiceUseCase orquesta el motor de facturación: cada mutación bloquea la factura,
// aplica la operación del agregado, verifica invariantes y persiste en una sola transacción.
type InvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	txRunner    InvoiceTxRunner
	publisher   EventPublisher
	log         zerolog.Logger
	cfg         Config
	now         func() time.Time
	newID       func() string
}

// NewInvoiceUseCase construye el caso de uso. invoiceRepo se usa solo para lecturas.
func NewInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	txRunner InvoiceTxRunner,
	publisher EventPublisher,
	log zerolog.Logger,
	cfg Config,
	opts ...Option,
) *InvoiceUseCase {
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "FAC"
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	uc := &InvoiceUseCase{
		invoiceRepo: invoiceRepo,
		txRunner:    txRunner,
		publisher:   publisher,
		log:         log.With().Str("component", "billing").Logger(),
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// mutation opera sobre el agregado ya bloqueado. seq solo lo usa la emisión.
type mutation func(inv *entity.Invoice, seq repository.InvoiceSequenceRepository, now time.Time) error

// mutate carga la factura con bloqueo, aplica fn, verifica invariantes y guarda.
// Los eventos se publican después del commit.
func (uc *InvoiceUseCase) mutate(ctx context.Context, op, tenantID, invoiceID string, fn mutation) (*entity.Invoice, error) {
	if tenantID == "" || invoiceID == "" {
		return nil, domain.ErrInvalidInput
	}
	var result *entity.Invoice
	err := uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, seqRepo repository.InvoiceSequenceRepository) error {
		inv, err := invoiceRepo.GetForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := fn(inv, seqRepo, now); err != nil {
			return err
		}
		if err := inv.CheckInvariants(); err != nil {
			return err
		}
		if err := invoiceRepo.Save(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		uc.logFailure(op, tenantID, invoiceID, err)
		return nil, err
	}
	uc.publish(ctx, result.PullEvents())
	return result, nil
}

func (uc *InvoiceUseCase) logFailure(op, tenantID, invoiceID string, err error) {
	var ev *zerolog.Event
	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		ev = uc.log.Error()
	case isDomainError(err):
		ev = uc.log.Warn()
	default:
		ev = uc.log.Error()
	}
	ev.Err(err).Str("op", op).Str("tenant_id", tenantID).Str("invoice_id", invoiceID).Msg("operación de facturación rechazada")
}

func (uc *InvoiceUseCase) publish(ctx context.Context, events []entity.DomainEvent) {
	if len(events) == 0 || uc.publisher == nil {
		return
	}
	for _, e := range events {
		uc.log.Info().
			Str("event", string(e.Type)).
			Str("invoice_id", e.InvoiceID).
			Str("number", e.Number).
			Str("status", string(e.Status)).
			Msg("transición de factura")
	}
	if err := uc.publisher.Publish(ctx, events...); err != nil {
		// El commit ya ocurrió: la notificación es responsabilidad del notificador.
		uc.log.Error().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos de factura")
	}
}

// isDomainError errores esperados del motor (validación y conflictos de estado).
func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound, domain.ErrInvalidInput, domain.ErrCurrencyMismatch,
		domain.ErrInvalidLineItem, domain.ErrInvoiceNotEditable, domain.ErrInvalidStateTransition,
		domain.ErrInvoiceNotIssued, domain.ErrOverpaymentRejected, domain.ErrReasonRequired,
		domain.ErrDuplicate, domain.ErrVersionConflict, errNoLongerOverdue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CreateInvoice crea una factura en borrador.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, tenantID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	currency := in.Currency
	if currency == "" {
		currency = uc.cfg.DefaultCurrency
	}
	netTerms := uc.cfg.DefaultNetTermsDays
	if in.NetTermsDays != nil {
		netTerms = *in.NetTermsDays
	}
	now := uc.now()
	inv, err := entity.NewInvoice(entity.NewInvoiceParams{
		ID:           uc.newID(),
		TenantID:     tenantID,
		CustomerRef:  in.CustomerRef,
		Currency:     currency,
		TaxBehavior:  entity.TaxBehavior(in.TaxBehavior),
		NetTermsDays: netTerms,
		Memo:         strings.TrimSpace(in.Memo),
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := uc.invoiceRepo.Create(ctx, inv); err != nil {
		uc.logFailure("create", tenantID, inv.ID, err)
		return nil, err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("invoice_id", inv.ID).Str("currency", inv.Currency).Msg("borrador creado")
	return toInvoiceResponse(inv, now), nil
}

// GetInvoice devuelve la proyección de la factura con su estado efectivo.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, tenantID, id string) (*dto.InvoiceResponse, error) {
	if tenantID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	inv, err := uc.invoiceRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// ListInvoices lista facturas del tenant.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, tenantID string, in dto.ListInvoicesRequest) (*dto.InvoiceListResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	in.DefaultPage()
	filter := repository.InvoiceFilter{
		TenantID:    tenantID,
		CustomerRef: in.CustomerRef,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Status != "" {
		st, err := entity.ParseInvoiceStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	items, total, err := uc.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(items)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}
	for _, inv := range items {
		out.Items = append(out.Items, *toInvoiceResponse(inv, now))
	}
	return out, nil
}

// DeleteDraft elimina físicamente un borrador con sus líneas.
func (uc *InvoiceUseCase) DeleteDraft(ctx context.Context, tenantID, id string) error {
	if tenantID == "" || id == "" {
		return domain.ErrInvalidInput
	}
	err := uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.InvoiceSequenceRepository) error {
		inv, err := invoiceRepo.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := inv.EnsureDeletable(); err != nil {
			return err
		}
		return invoiceRepo.Delete(ctx, tenantID, id)
	})
	if err != nil {
		uc.logFailure("delete", tenantID, id, err)
		return err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("invoice_id", id).Msg("borrador eliminado")
	return nil
}

// AddLineItem agrega una línea al borrador y recalcula totales.
func (uc *InvoiceUseCase) AddLineItem(ctx context.Context, tenantID, invoiceID string, in dto.LineItemRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "add_line_item", tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		input, err := toLineInput(inv.Currency, in)
		if err != nil {
			return err
		}
		_, err = inv.AddLineItem(uc.newID(), input, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// UpdateLineItem reemplaza una línea del borrador.
func (uc *InvoiceUseCase) UpdateLineItem(ctx context.Context, tenantID, invoiceID, lineID string, in dto.LineItemRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "update_line_item", tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		input, err := toLineInput(inv.Currency, in)
		if err != nil {
			return err
		}
		_, err = inv.UpdateLineItem(lineID, input, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// RemoveLineItem elimina una línea del borrador.
func (uc *InvoiceUseCase) RemoveLineItem(ctx context.Context, tenantID, invoiceID, lineID string) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "remove_line_item", tenantID, invoiceID, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		return inv.RemoveLineItem(lineID, now)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// IssueInvoice emite el borrador: reserva el consecutivo en la misma transacción,
// asigna número y fechas y congela las líneas.
func (uc *InvoiceUseCase) IssueInvoice(ctx context.Context, tenantID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "issue", tenantID, id, func(inv *entity.Invoice, seq repository.InvoiceSequenceRepository, now time.Time) error {
		if _, err := entity.NextStatus(inv.Status, entity.EventIssue); err != nil {
			return err
		}
		year := now.UTC().Year()
		n, err := seq.Next(ctx, inv.TenantID, year)
		if err != nil {
			return fmt.Errorf("consecutivo de factura: %w", err)
		}
		return inv.Issue(FormatInvoiceNumber(uc.cfg.NumberPrefix, year, n), now)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

// FormatInvoiceNumber arma el número visible: FAC-2025-000042.
func FormatInvoiceNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%04d-%06d", prefix, year, n)
}

// VoidInvoice anula una factura emitida. No revierte pagos.
func (uc *InvoiceUseCase) VoidInvoice(ctx context.Context, tenantID, id string, in dto.VoidInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.mutate(ctx, "void", tenantID, id, func(inv *entity.Invoice, _ repository.InvoiceSequenceRepository, now time.Time) error {
		return inv.Void(in.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, uc.now()), nil
}

func paymentAmount(currency string, in dto.RecordPaymentRequest) (money.Money, error) {
	if !in.Amount.IsPositive() {
		return money.Money{}, fmt.Errorf("%w: el monto del pago debe ser positivo", domain.ErrInvalidInput)
	}
	amount, err := money.FromMajor(in.Amount, currency, money.RoundHalfUp)
	if err != nil {
		return money.Money{}, fmt.Errorf("%w: monto del pago: %w", domain.ErrInvalidInput, err)
	}
	return amount, nil
}
