package entity_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newDraft(t *testing.T, behavior entity.TaxBehavior) *entity.Invoice {
	t.Helper()
	inv, err := entity.NewInvoice(entity.NewInvoiceParams{
		ID:           "inv-1",
		TenantID:     "tenant-1",
		CustomerRef:  "cust-1",
		Currency:     "usd",
		TaxBehavior:  behavior,
		NetTermsDays: 30,
		Now:          t0,
	})
	require.NoError(t, err)
	return inv
}

func addLine(t *testing.T, inv *entity.Invoice, id string, q string, unit int64) *entity.LineItem {
	t.Helper()
	li, err := inv.AddLineItem(id, entity.LineItemInput{
		Description: "línea " + id,
		Quantity:    qty(q),
		UnitAmount:  usd(unit),
	}, t0)
	require.NoError(t, err)
	return li
}

// issuedWithTotal devuelve una factura emitida cuyo total es exactamente total.
func issuedWithTotal(t *testing.T, total int64) *entity.Invoice {
	t.Helper()
	inv := newDraft(t, entity.TaxExclusive)
	addLine(t, inv, "l1", "1", total)
	require.NoError(t, inv.Issue("FAC-2025-000001", t0))
	inv.PullEvents()
	return inv
}

func TestAddLineItem_DesbordamientoNoAlteraLaFactura(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)

	_, err := inv.AddLineItem("l1", entity.LineItemInput{Description: "x", Quantity: qty("5"), UnitAmount: usd(1 << 62)}, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Empty(t, inv.LineItems)
	assert.True(t, inv.Total.IsZero())

	half := int64(math.MaxInt64/2 + 1)
	addLine(t, inv, "l2", "1", half)
	_, err = inv.AddLineItem("l3", entity.LineItemInput{Description: "y", Quantity: qty("1"), UnitAmount: usd(half)}, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.ErrorIs(t, err, domain.ErrAmountOutOfRange)

	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, usd(half), inv.Subtotal)
	assert.Equal(t, usd(half), inv.Total)
	assert.Equal(t, usd(half), inv.AmountDue)
	require.NoError(t, inv.CheckInvariants())
}

func TestNewInvoice_Validaciones(t *testing.T) {
	base := entity.NewInvoiceParams{TenantID: "t", CustomerRef: "c", Currency: "USD", Now: t0}

	inv, err := entity.NewInvoice(base)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, entity.TaxExclusive, inv.TaxBehavior)
	assert.Empty(t, inv.Number)

	cases := map[string]func(p *entity.NewInvoiceParams){
		"sin tenant":         func(p *entity.NewInvoiceParams) { p.TenantID = "" },
		"sin cliente":        func(p *entity.NewInvoiceParams) { p.CustomerRef = " " },
		"moneda inválida":    func(p *entity.NewInvoiceParams) { p.Currency = "US" },
		"plazo negativo":     func(p *entity.NewInvoiceParams) { p.NetTermsDays = -1 },
		"tax_behavior extra": func(p *entity.NewInvoiceParams) { p.TaxBehavior = "mixed" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := entity.NewInvoice(p)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

// Escenario 1: borrador USD, 2 x 10.00, emitir a 30 días.
func TestEscenario_EmitirFacturaSimple(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	addLine(t, inv, "l1", "2", 1000)

	assert.Equal(t, usd(2000), inv.Subtotal)
	assert.Equal(t, usd(2000), inv.Total)

	require.NoError(t, inv.Issue("FAC-2025-000001", t0))
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)
	assert.Equal(t, "FAC-2025-000001", inv.Number)
	require.NotNil(t, inv.IssuedAt)
	require.NotNil(t, inv.DueAt)
	assert.Equal(t, inv.IssuedAt.AddDate(0, 0, 30), *inv.DueAt)
	assert.Equal(t, usd(2000), inv.AmountDue)

	events := inv.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventTypeIssued, events[0].Type)
	assert.Empty(t, inv.PullEvents())
	require.NoError(t, inv.CheckInvariants())
}

// Escenario 2: pago total deja la factura pagada.
func TestEscenario_PagoTotal(t *testing.T) {
	inv := issuedWithTotal(t, 2000)

	p, err := inv.RecordPayment("p1", usd(2000), "cash", "", t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.AmountDue.IsZero())
	assert.Equal(t, usd(2000), inv.AmountPaid)
	require.NotNil(t, inv.PaidAt)

	events := inv.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventTypePaid, events[0].Type)
	require.NoError(t, inv.CheckInvariants())
}

// Escenario 3: impuesto exclusivo del 20%.
func TestEscenario_ImpuestoExclusivo(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	_, err := inv.AddLineItem("l1", entity.LineItemInput{
		Description: "Servicio",
		Quantity:    qty("1"),
		UnitAmount:  usd(10000),
		TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.20")},
	}, t0)
	require.NoError(t, err)

	assert.Equal(t, usd(2000), inv.LineItems[0].TaxAmount)
	assert.Equal(t, usd(12000), inv.LineItems[0].Total)
	assert.Equal(t, usd(10000), inv.Subtotal)
	assert.Equal(t, usd(2000), inv.TaxTotal)
	assert.Equal(t, usd(12000), inv.Total)
}

// Escenario 4: pago parcial y luego sobrepago rechazado sin cambios.
func TestEscenario_SobrepagoRechazado(t *testing.T) {
	inv := issuedWithTotal(t, 5000)

	_, err := inv.RecordPayment("p1", usd(3000), "card", "ch_1", t0)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, usd(3000), inv.AmountPaid)
	assert.Equal(t, usd(2000), inv.AmountDue)

	_, err = inv.RecordPayment("p2", usd(2500), "card", "ch_2", t0)
	require.ErrorIs(t, err, domain.ErrOverpaymentRejected)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, usd(3000), inv.AmountPaid)
	assert.Equal(t, usd(2000), inv.AmountDue)
	assert.Len(t, inv.Payments, 1)
	require.NoError(t, inv.CheckInvariants())
}

// Escenario 5: emitir sin líneas falla con transición inválida.
func TestEscenario_EmitirSinLineas(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)

	err := inv.Issue("FAC-2025-000001", t0)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.Empty(t, inv.Number)
}

func TestIssue_TotalCeroFalla(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	addLine(t, inv, "l1", "1", 0)

	assert.ErrorIs(t, inv.Issue("FAC-2025-000001", t0), domain.ErrInvalidStateTransition)
}

// Escenario 6: anular y luego intentar pagar.
func TestEscenario_AnularYPagar(t *testing.T) {
	inv := issuedWithTotal(t, 5000)

	require.NoError(t, inv.Void("customer cancelled", t0))
	assert.Equal(t, entity.InvoiceStatusVoid, inv.Status)
	assert.Equal(t, "customer cancelled", inv.VoidReason)
	require.NotNil(t, inv.VoidedAt)

	_, err := inv.RecordPaymentAttempt("p1", usd(100), "card", "", t0)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotIssued)
	require.NoError(t, inv.CheckInvariants())
}

func TestVoid_OrdenDeValidaciones(t *testing.T) {
	draft := newDraft(t, entity.TaxExclusive)
	assert.ErrorIs(t, draft.Void("", t0), domain.ErrInvalidStateTransition)

	inv := issuedWithTotal(t, 100)
	assert.ErrorIs(t, inv.Void("   ", t0), domain.ErrReasonRequired)
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)

	require.NoError(t, inv.Void("duplicada", t0))
	assert.ErrorIs(t, inv.Void("otra vez", t0), domain.ErrInvalidStateTransition)
}

func TestVoid_PagadaNoSePuedeAnular(t *testing.T) {
	inv := issuedWithTotal(t, 100)
	_, err := inv.RecordPayment("p1", usd(100), "cash", "", t0)
	require.NoError(t, err)

	assert.ErrorIs(t, inv.Void("chargeback", t0), domain.ErrInvalidStateTransition)
}

func TestVoid_ConservaMontosParaAuditoria(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	_, err := inv.RecordPayment("p1", usd(400), "cash", "", t0)
	require.NoError(t, err)

	require.NoError(t, inv.Void("error de cliente", t0))
	assert.Equal(t, usd(400), inv.AmountPaid)
	assert.Equal(t, usd(600), inv.AmountDue)
}

func TestInmutabilidadTrasEmision(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	lineID := inv.LineItems[0].ID
	subtotal, total := inv.Subtotal, inv.Total

	_, err := inv.AddLineItem("l2", entity.LineItemInput{Description: "x", Quantity: qty("1"), UnitAmount: usd(1)}, t0)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotEditable)

	_, err = inv.UpdateLineItem(lineID, entity.LineItemInput{Description: "x", Quantity: qty("9"), UnitAmount: usd(1)}, t0)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotEditable)

	assert.ErrorIs(t, inv.RemoveLineItem(lineID, t0), domain.ErrInvoiceNotEditable)

	assert.Equal(t, subtotal, inv.Subtotal)
	assert.Equal(t, total, inv.Total)
	assert.Len(t, inv.LineItems, 1)
}

func TestUpdateYRemoveLineItem_Recalculan(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	l1 := addLine(t, inv, "l1", "1", 1000)
	addLine(t, inv, "l2", "3", 500)
	assert.Equal(t, usd(2500), inv.Total)

	updated, err := inv.UpdateLineItem(l1.ID, entity.LineItemInput{Description: "nuevo", Quantity: qty("2"), UnitAmount: usd(1000)}, t0)
	require.NoError(t, err)
	assert.Equal(t, "nuevo", updated.Description)
	assert.Equal(t, l1.Position, updated.Position)
	assert.Equal(t, usd(3500), inv.Total)

	require.NoError(t, inv.RemoveLineItem("l2", t0))
	assert.Equal(t, usd(2000), inv.Total)

	assert.ErrorIs(t, inv.RemoveLineItem("nope", t0), domain.ErrNotFound)
}

func TestAddLineItem_InvalidaNoCambiaLaFactura(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	addLine(t, inv, "l1", "1", 1000)

	_, err := inv.AddLineItem("l2", entity.LineItemInput{Description: "", Quantity: qty("1"), UnitAmount: usd(10)}, t0)
	require.ErrorIs(t, err, domain.ErrInvalidLineItem)
	assert.Len(t, inv.LineItems, 1)
	assert.Equal(t, usd(1000), inv.Total)
}

// TestInvariantes_SecuenciaAleatoria agrega y quita líneas al azar y verifica
// las invariantes del agregado después de cada operación.
func TestInvariantes_SecuenciaAleatoria(t *testing.T) {
	for _, behavior := range []entity.TaxBehavior{entity.TaxExclusive, entity.TaxInclusive} {
		t.Run(string(behavior), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			inv := newDraft(t, behavior)

			for i := 0; i < 300; i++ {
				if len(inv.LineItems) > 0 && rng.Intn(3) == 0 {
					victim := inv.LineItems[rng.Intn(len(inv.LineItems))].ID
					require.NoError(t, inv.RemoveLineItem(victim, t0))
				} else {
					in := entity.LineItemInput{
						Description: fmt.Sprintf("item %d", i),
						Quantity:    qty(fmt.Sprintf("%d.%03d", rng.Intn(10), rng.Intn(1000)+1)),
						UnitAmount:  usd(rng.Int63n(100000)),
					}
					if rng.Intn(2) == 0 {
						in.TaxRate = &entity.TaxRate{Name: "IVA", Rate: qty(fmt.Sprintf("0.%02d", rng.Intn(30)))}
					}
					switch rng.Intn(3) {
					case 0:
						in.Discount = &entity.Discount{Name: "fijo", Kind: entity.DiscountFixed, Amount: usd(rng.Int63n(5000))}
					case 1:
						in.Discount = &entity.Discount{Name: "pct", Kind: entity.DiscountPercentage, Percent: qty(fmt.Sprintf("0.%02d", rng.Intn(50)))}
					}
					_, err := inv.AddLineItem(fmt.Sprintf("l%d", i), in, t0)
					require.NoError(t, err)
				}

				require.NoError(t, inv.CheckInvariants())
				var sub, disc, tax, total int64
				for _, li := range inv.LineItems {
					sub += li.Subtotal.Amount
					disc += li.DiscountAmount.Amount
					tax += li.TaxAmount.Amount
					total += li.Total.Amount
				}
				assert.Equal(t, sub, inv.Subtotal.Amount)
				assert.Equal(t, disc, inv.DiscountTotal.Amount)
				assert.Equal(t, tax, inv.TaxTotal.Amount)
				assert.Equal(t, total, inv.Total.Amount)
				if behavior == entity.TaxExclusive {
					assert.Equal(t, inv.Subtotal.Amount-inv.DiscountTotal.Amount+inv.TaxTotal.Amount, inv.Total.Amount)
				} else {
					assert.Equal(t, inv.Subtotal.Amount-inv.DiscountTotal.Amount, inv.Total.Amount)
				}
			}
		})
	}
}

func TestRecompute_Idempotente(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	_, err := inv.AddLineItem("l1", entity.LineItemInput{
		Description: "x",
		Quantity:    qty("3.333"),
		UnitAmount:  usd(3333),
		TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.19")},
	}, t0)
	require.NoError(t, err)

	require.NoError(t, inv.Recompute())
	first := []money.Money{inv.Subtotal, inv.DiscountTotal, inv.TaxTotal, inv.Total, inv.AmountDue}
	require.NoError(t, inv.Recompute())
	second := []money.Money{inv.Subtotal, inv.DiscountTotal, inv.TaxTotal, inv.Total, inv.AmountDue}

	assert.Equal(t, first, second)
}

func TestMarkPaymentSucceeded_SobrepagoMarcaFallido(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	p1, err := inv.RecordPaymentAttempt("p1", usd(1000), "card", "a", t0)
	require.NoError(t, err)
	p2, err := inv.RecordPaymentAttempt("p2", usd(1000), "card", "b", t0)
	require.NoError(t, err)

	_, err = inv.MarkPaymentSucceeded(p1.ID, t0)
	require.NoError(t, err)

	rejected, err := inv.MarkPaymentSucceeded(p2.ID, t0)
	require.ErrorIs(t, err, domain.ErrOverpaymentRejected)
	require.NotNil(t, rejected)
	assert.Equal(t, entity.PaymentStatusFailed, p2.Status)
	assert.Equal(t, entity.FailureCodeOverpayment, p2.FailureCode)
	assert.NotNil(t, p2.FailedAt)

	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, usd(1000), inv.AmountPaid)
	require.NoError(t, inv.CheckInvariants())
}

func TestMarkPaymentSucceeded_FacturaAnuladaMarcaFallido(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	p, err := inv.RecordPaymentAttempt("p1", usd(500), "card", "", t0)
	require.NoError(t, err)
	require.NoError(t, inv.Void("cliente canceló", t0))

	_, err = inv.MarkPaymentSucceeded(p.ID, t0)
	require.ErrorIs(t, err, domain.ErrInvoiceNotIssued)
	assert.Equal(t, entity.FailureCodeInvoiceNotIssued, p.FailureCode)
	assert.True(t, inv.AmountPaid.IsZero())
}

func TestMarkPayment_SoloUnaVez(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	p, err := inv.RecordPaymentAttempt("p1", usd(100), "card", "", t0)
	require.NoError(t, err)

	_, err = inv.MarkPaymentFailed(p.ID, "card_declined", "fondos insuficientes", t0)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, p.Status)
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)
	assert.True(t, inv.AmountPaid.IsZero())

	_, err = inv.MarkPaymentSucceeded(p.ID, t0)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = inv.MarkPaymentFailed(p.ID, "again", "", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = inv.MarkPaymentFailed("nope", "x", "", t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordPaymentAttempt_Validaciones(t *testing.T) {
	draft := newDraft(t, entity.TaxExclusive)
	_, err := draft.RecordPaymentAttempt("p", usd(1), "cash", "", t0)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotIssued)

	inv := issuedWithTotal(t, 1000)
	_, err = inv.RecordPaymentAttempt("p", usd(0), "cash", "", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = inv.RecordPaymentAttempt("p", money.New(10, "EUR"), "cash", "", t0)
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
	assert.Empty(t, inv.Payments)
}

func TestPastDue_BarridoYEstadoEfectivo(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	due := *inv.DueAt

	assert.False(t, inv.IsOverdue(due))
	assert.Equal(t, entity.InvoiceStatusIssued, inv.EffectiveStatus(due))
	assert.ErrorIs(t, inv.MarkPastDue(due), domain.ErrInvalidStateTransition)

	later := due.Add(time.Minute)
	assert.Equal(t, entity.InvoiceStatusPastDue, inv.EffectiveStatus(later))
	require.NoError(t, inv.MarkPastDue(later))
	assert.Equal(t, entity.InvoiceStatusPastDue, inv.Status)
	assert.Equal(t, entity.EventTypePastDue, inv.PullEvents()[0].Type)

	// Un pago parcial mantiene la factura vencida; el saldo completo la cierra.
	_, err := inv.RecordPayment("p1", usd(400), "cash", "", later)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPastDue, inv.Status)
	_, err = inv.RecordPayment("p2", usd(600), "cash", "", later)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, entity.InvoiceStatusPaid, inv.EffectiveStatus(later.AddDate(1, 0, 0)))
}

func TestEnsureDeletable(t *testing.T) {
	assert.NoError(t, newDraft(t, entity.TaxExclusive).EnsureDeletable())
	assert.ErrorIs(t, issuedWithTotal(t, 10).EnsureDeletable(), domain.ErrInvalidStateTransition)
}

func TestClone_EsIndependiente(t *testing.T) {
	inv := issuedWithTotal(t, 1000)
	_, err := inv.RecordPaymentAttempt("p1", usd(100), "card", "", t0)
	require.NoError(t, err)

	c := inv.Clone()
	_, err = c.MarkPaymentSucceeded("p1", t0)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusPending, inv.Payments[0].Status)
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, usd(100), c.AmountPaid)
}
