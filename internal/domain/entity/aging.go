package entity

import "time"

// AgingBucket tramo de antigüedad de un saldo pendiente.
type AgingBucket string

const (
	AgingCurrent AgingBucket = "current" // aún no vence
	Aging1To30   AgingBucket = "1_30"
	Aging31To60  AgingBucket = "31_60"
	Aging61To90  AgingBucket = "61_90"
	AgingOver90  AgingBucket = "over_90"
)

// AgingBuckets tramos en orden de antigüedad.
var AgingBuckets = []AgingBucket{AgingCurrent, Aging1To30, Aging31To60, Aging61To90, AgingOver90}

const day = 24 * time.Hour

// AgingBucketFor clasifica un vencimiento frente a asOf. Los límites son inclusivos: 30 días exactos es 1_30.
func AgingBucketFor(dueAt, asOf time.Time) AgingBucket {
	late := asOf.Sub(dueAt)
	switch {
	case late <= 0:
		return AgingCurrent
	case late <= 30*day:
		return Aging1To30
	case late <= 60*day:
		return Aging31To60
	case late <= 90*day:
		return Aging61To90
	default:
		return AgingOver90
	}
}

// IsOutstanding emitida, no pagada ni anulada, con saldo.
func (inv *Invoice) IsOutstanding() bool {
	return inv.Status.AcceptsPayments() && inv.AmountDue.IsPositive()
}
