// Package analytics contiene los casos de uso de reportes de solo lectura sobre la cartera.
package analytics

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/money"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// ReceivablesUseCase genera el resumen de cartera de un tenant.
//
// Fuente de datos: ReceivablesRepository (consultas read-only).
// No toma locks: el resumen puede quedar desfasado frente a pagos en curso.
type ReceivablesUseCase struct {
	repo repository.ReceivablesRepository
	now  func() time.Time
}

// NewReceivablesUseCase construye el caso de uso. now nil usa time.Now.
func NewReceivablesUseCase(repo repository.ReceivablesRepository, now func() time.Time) *ReceivablesUseCase {
	if now == nil {
		now = time.Now
	}
	return &ReceivablesUseCase{repo: repo, now: now}
}

// Summary construye el ReceivablesSummaryDTO.
//
// Dos consultas en paralelo:
//  1. TotalsByStatus(asOf) → ByStatus
//  2. AgingTotals(asOf)    → Aging + Outstanding
func (uc *ReceivablesUseCase) Summary(ctx context.Context, tenantID string) (*dto.ReceivablesSummaryDTO, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant requerido", domain.ErrInvalidInput)
	}
	asOf := uc.now().UTC()

	type statusResult struct {
		rows []repository.StatusTotals
		err  error
	}
	type agingResult struct {
		rows []repository.AgingTotals
		err  error
	}
	statusCh := make(chan statusResult, 1)
	agingCh := make(chan agingResult, 1)

	go func() {
		rows, err := uc.repo.TotalsByStatus(ctx, tenantID, asOf)
		statusCh <- statusResult{rows, err}
	}()
	go func() {
		rows, err := uc.repo.AgingTotals(ctx, tenantID, asOf)
		agingCh <- agingResult{rows, err}
	}()

	status := <-statusCh
	aging := <-agingCh
	if status.err != nil {
		return nil, fmt.Errorf("cartera: totales por estado: %w", status.err)
	}
	if aging.err != nil {
		return nil, fmt.Errorf("cartera: antigüedad: %w", aging.err)
	}

	sortStatus(status.rows)
	sortAging(aging.rows)

	out := &dto.ReceivablesSummaryDTO{
		AsOf:        asOf,
		ByStatus:    make([]dto.StatusSummaryDTO, 0, len(status.rows)),
		Aging:       make([]dto.AgingSummaryDTO, 0, len(aging.rows)),
		Outstanding: []money.Money{},
	}
	for _, row := range status.rows {
		out.ByStatus = append(out.ByStatus, dto.StatusSummaryDTO{
			Status:    string(row.Status),
			Count:     row.Count,
			Total:     money.New(row.Total, row.Currency),
			AmountDue: money.New(row.AmountDue, row.Currency),
		})
	}

	outstanding := make(map[string]int64)
	for _, row := range aging.rows {
		out.Aging = append(out.Aging, dto.AgingSummaryDTO{
			Bucket:    string(row.Bucket),
			Count:     row.Count,
			AmountDue: money.New(row.AmountDue, row.Currency),
		})
		outstanding[money.NormalizeCurrency(row.Currency)] += row.AmountDue
	}
	currencies := make([]string, 0, len(outstanding))
	for c := range outstanding {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		out.Outstanding = append(out.Outstanding, money.New(outstanding[c], c))
	}
	return out, nil
}

// sortStatus ordena por ciclo de vida y luego por moneda.
func sortStatus(rows []repository.StatusTotals) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := slices.Index(entity.InvoiceStatuses, rows[i].Status), slices.Index(entity.InvoiceStatuses, rows[j].Status)
		if a != b {
			return a < b
		}
		return rows[i].Currency < rows[j].Currency
	})
}

// sortAging ordena del tramo más reciente al más antiguo y luego por moneda.
func sortAging(rows []repository.AgingTotals) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := slices.Index(entity.AgingBuckets, rows[i].Bucket), slices.Index(entity.AgingBuckets, rows[j].Bucket)
		if a != b {
			return a < b
		}
		return rows[i].Currency < rows[j].Currency
	})
}
