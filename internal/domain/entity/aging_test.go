package entity_test

import (
	"testing"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgingBucketFor_Limites(t *testing.T) {
	due := t0
	d := 24 * time.Hour
	cases := []struct {
		asOf time.Time
		want entity.AgingBucket
	}{
		{due.Add(-time.Hour), entity.AgingCurrent},
		{due, entity.AgingCurrent},
		{due.Add(time.Second), entity.Aging1To30},
		{due.Add(30 * d), entity.Aging1To30},
		{due.Add(30*d + time.Second), entity.Aging31To60},
		{due.Add(60 * d), entity.Aging31To60},
		{due.Add(90 * d), entity.Aging61To90},
		{due.Add(91 * d), entity.AgingOver90},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, entity.AgingBucketFor(due, tc.asOf), tc.asOf.String())
	}
}

func TestInvoice_IsOutstanding(t *testing.T) {
	inv := newDraft(t, entity.TaxExclusive)
	assert.False(t, inv.IsOutstanding(), "borrador")

	inv.Status = entity.InvoiceStatusIssued
	inv.AmountDue = money.New(500, "USD")
	assert.True(t, inv.IsOutstanding())

	inv.Status = entity.InvoiceStatusPastDue
	assert.True(t, inv.IsOutstanding())

	inv.Status = entity.InvoiceStatusVoid
	assert.False(t, inv.IsOutstanding(), "anulada")

	inv.Status = entity.InvoiceStatusPartiallyPaid
	inv.AmountDue = money.Zero("USD")
	require.False(t, inv.IsOutstanding(), "sin saldo")
}
