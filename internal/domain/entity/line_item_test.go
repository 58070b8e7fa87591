package entity_test

import (
	"math"
	"testing"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(amount int64) money.Money { return money.New(amount, "USD") }

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLine_SinImpuestoNiDescuento(t *testing.T) {
	got, err := entity.ComputeLine(entity.LineItemInput{
		Description: "Consultoría",
		Quantity:    qty("2"),
		UnitAmount:  usd(1000),
	}, entity.TaxExclusive)
	require.NoError(t, err)

	assert.Equal(t, usd(2000), got.Subtotal)
	assert.Equal(t, usd(0), got.DiscountAmount)
	assert.Equal(t, usd(0), got.TaxAmount)
	assert.Equal(t, usd(2000), got.Total)
}

func TestComputeLine_ImpuestoExclusivo20(t *testing.T) {
	got, err := entity.ComputeLine(entity.LineItemInput{
		Description: "Licencia",
		Quantity:    qty("1"),
		UnitAmount:  usd(10000),
		TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.20")},
	}, entity.TaxExclusive)
	require.NoError(t, err)

	assert.Equal(t, usd(10000), got.Subtotal)
	assert.Equal(t, usd(2000), got.TaxAmount)
	assert.Equal(t, usd(12000), got.Total)
}

func TestComputeLine_DescuentoAntesDelImpuesto(t *testing.T) {
	got, err := entity.ComputeLine(entity.LineItemInput{
		Description: "Soporte",
		Quantity:    qty("1"),
		UnitAmount:  usd(10000),
		TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.19")},
		Discount:    &entity.Discount{Name: "Promo", Kind: entity.DiscountPercentage, Percent: qty("0.10")},
	}, entity.TaxExclusive)
	require.NoError(t, err)

	assert.Equal(t, usd(1000), got.DiscountAmount)
	assert.Equal(t, usd(1710), got.TaxAmount) // 19% de 9000
	assert.Equal(t, usd(10710), got.Total)
}

func TestComputeLine_DescuentoFijoTopadoEnSubtotal(t *testing.T) {
	got, err := entity.ComputeLine(entity.LineItemInput{
		Description: "Item",
		Quantity:    qty("1"),
		UnitAmount:  usd(500),
		Discount:    &entity.Discount{Name: "Cupón", Kind: entity.DiscountFixed, Amount: usd(800)},
	}, entity.TaxExclusive)
	require.NoError(t, err)

	assert.Equal(t, usd(500), got.DiscountAmount)
	assert.Equal(t, usd(0), got.Total)
}

func TestComputeLine_ImpuestoInclusivo(t *testing.T) {
	got, err := entity.ComputeLine(entity.LineItemInput{
		Description: "Producto",
		Quantity:    qty("1"),
		UnitAmount:  usd(11900),
		TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.19")},
	}, entity.TaxInclusive)
	require.NoError(t, err)

	assert.Equal(t, usd(11900), got.Subtotal)
	assert.Equal(t, usd(1900), got.TaxAmount)
	assert.Equal(t, usd(11900), got.Total, "el impuesto inclusivo no se suma al total")
}

// En modo inclusivo el impuesto se extrae del subtotal; el descuento solo reduce el total.
func TestComputeLine_ImpuestoInclusivoConDescuento(t *testing.T) {
	iva := &entity.TaxRate{Name: "IVA", Rate: qty("0.19")}
	tests := []struct {
		name         string
		unit         int64
		discount     *entity.Discount
		wantDiscount int64
		wantTax      int64
		wantTotal    int64
	}{
		{"porcentaje", 11900, &entity.Discount{Name: "Promo", Kind: entity.DiscountPercentage, Percent: qty("0.10")}, 1190, 1900, 10710},
		{"fijo", 11900, &entity.Discount{Name: "Cupón", Kind: entity.DiscountFixed, Amount: usd(500)}, 500, 1900, 11400},
		{"fijo topado", 11900, &entity.Discount{Name: "Cupón", Kind: entity.DiscountFixed, Amount: usd(20000)}, 11900, 1900, 0},
		{"redondeo", 1000, &entity.Discount{Name: "Promo", Kind: entity.DiscountPercentage, Percent: qty("0.25")}, 250, 160, 750}, // 1000/1.19 = 840.34
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entity.ComputeLine(entity.LineItemInput{
				Description: "Producto",
				Quantity:    qty("1"),
				UnitAmount:  usd(tt.unit),
				TaxRate:     iva,
				Discount:    tt.discount,
			}, entity.TaxInclusive)
			require.NoError(t, err)

			assert.Equal(t, usd(tt.unit), got.Subtotal)
			assert.Equal(t, usd(tt.wantDiscount), got.DiscountAmount)
			assert.Equal(t, usd(tt.wantTax), got.TaxAmount)
			assert.Equal(t, usd(tt.wantTotal), got.Total)
		})
	}
}

func TestComputeLine_MontosFueraDeRango(t *testing.T) {
	tests := []struct {
		name string
		in   entity.LineItemInput
	}{
		{"subtotal 3 x 2^62", entity.LineItemInput{Description: "x", Quantity: qty("3"), UnitAmount: usd(1 << 62)}},
		{"subtotal 5 x 2^62", entity.LineItemInput{Description: "x", Quantity: qty("5"), UnitAmount: usd(1 << 62)}},
		{"total con impuesto", entity.LineItemInput{
			Description: "x",
			Quantity:    qty("1"),
			UnitAmount:  usd(math.MaxInt64),
			TaxRate:     &entity.TaxRate{Name: "IVA", Rate: qty("0.50")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entity.ComputeLine(tt.in, entity.TaxExclusive)
			assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
			assert.ErrorIs(t, err, domain.ErrAmountOutOfRange)
			assert.Equal(t, entity.LineAmounts{}, got)
		})
	}
}

func TestComputeLine_RedondeoCantidadFraccionaria(t *testing.T) {
	in := entity.LineItemInput{Description: "Horas", Quantity: qty("1.333"), UnitAmount: usd(999)}
	first, err := entity.ComputeLine(in, entity.TaxExclusive)
	require.NoError(t, err)
	second, err := entity.ComputeLine(in, entity.TaxExclusive)
	require.NoError(t, err)

	// 1.333 * 999 = 1331.667 → 1332
	assert.Equal(t, usd(1332), first.Subtotal)
	assert.Equal(t, first, second)
}

func TestLineItemInput_Validate(t *testing.T) {
	base := entity.LineItemInput{Description: "ok", Quantity: qty("1"), UnitAmount: usd(100)}

	tests := []struct {
		name    string
		mutate  func(in *entity.LineItemInput)
		wantErr error
	}{
		{"descripción vacía", func(in *entity.LineItemInput) { in.Description = "  " }, domain.ErrInvalidLineItem},
		{"cantidad cero", func(in *entity.LineItemInput) { in.Quantity = qty("0") }, domain.ErrInvalidLineItem},
		{"cantidad negativa", func(in *entity.LineItemInput) { in.Quantity = qty("-1") }, domain.ErrInvalidLineItem},
		{"cantidad con 4 decimales", func(in *entity.LineItemInput) { in.Quantity = qty("1.0001") }, domain.ErrInvalidLineItem},
		{"precio negativo", func(in *entity.LineItemInput) { in.UnitAmount = usd(-1) }, domain.ErrInvalidLineItem},
		{"moneda distinta", func(in *entity.LineItemInput) { in.UnitAmount = money.New(100, "EUR") }, domain.ErrCurrencyMismatch},
		{"tasa mayor a 1", func(in *entity.LineItemInput) {
			in.TaxRate = &entity.TaxRate{Name: "x", Rate: qty("1.5")}
		}, domain.ErrInvalidLineItem},
		{"descuento fijo en otra moneda", func(in *entity.LineItemInput) {
			in.Discount = &entity.Discount{Name: "d", Kind: entity.DiscountFixed, Amount: money.New(10, "EUR")}
		}, domain.ErrCurrencyMismatch},
		{"tipo de descuento desconocido", func(in *entity.LineItemInput) {
			in.Discount = &entity.Discount{Name: "d", Kind: "bogus"}
		}, domain.ErrInvalidLineItem},
	}

	require.NoError(t, base.Validate("USD"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			assert.ErrorIs(t, in.Validate("USD"), tt.wantErr)
		})
	}
}
