// Package memory implementa los puertos de persistencia en memoria. Las transacciones
// se serializan con un mutex y se confirman copiando el estado preparado al almacén.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository         = (*InvoiceRepo)(nil)
	_ repository.InvoiceSequenceRepository = (*SequenceRepo)(nil)
	_ billing.InvoiceTxRunner              = (*Store)(nil)
)

type seqKey struct {
	tenantID string
	year     int
}

// Store almacén en memoria seguro para uso concurrente.
type Store struct {
	txMu sync.Mutex // una transacción a la vez

	mu        sync.RWMutex
	invoices  map[string]*entity.Invoice
	sequences map[seqKey]int64
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		invoices:  make(map[string]*entity.Invoice),
		sequences: make(map[seqKey]int64),
	}
}

// txState cambios preparados de una transacción; un valor nil marca una factura eliminada.
type txState struct {
	invoices  map[string]*entity.Invoice
	sequences map[seqKey]int64
}

// Invoices repositorio fuera de transacción (lecturas y altas directas).
func (s *Store) Invoices() *InvoiceRepo {
	return &InvoiceRepo{s: s}
}

// RunInvoice ejecuta fn con repos sobre un estado preparado; solo se confirma si fn no falla.
func (s *Store) RunInvoice(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.InvoiceSequenceRepository,
) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txState{
		invoices:  make(map[string]*entity.Invoice),
		sequences: make(map[seqKey]int64),
	}
	if err := fn(&InvoiceRepo{s: s, tx: tx}, &SequenceRepo{s: s, tx: tx}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, inv := range tx.invoices {
		if inv == nil {
			delete(s.invoices, id)
			continue
		}
		s.invoices[id] = inv
	}
	for k, v := range tx.sequences {
		s.sequences[k] = v
	}
	return nil
}

// InvoiceRepo repositorio de facturas en memoria. Siempre entrega y guarda copias.
type InvoiceRepo struct {
	s  *Store
	tx *txState
}

func (r *InvoiceRepo) lookup(id string) *entity.Invoice {
	if r.tx != nil {
		if inv, ok := r.tx.invoices[id]; ok {
			return inv
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.invoices[id]
}

func (r *InvoiceRepo) put(inv *entity.Invoice) {
	if r.tx != nil {
		r.tx.invoices[inv.ID] = inv
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invoices[inv.ID] = inv
}

// snapshot une el almacén confirmado con los cambios preparados.
func (r *InvoiceRepo) snapshot() []*entity.Invoice {
	r.s.mu.RLock()
	merged := make(map[string]*entity.Invoice, len(r.s.invoices))
	for id, inv := range r.s.invoices {
		merged[id] = inv
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for id, inv := range r.tx.invoices {
			merged[id] = inv
		}
	}
	out := make([]*entity.Invoice, 0, len(merged))
	for _, inv := range merged {
		if inv != nil {
			out = append(out, inv)
		}
	}
	return out
}

func (r *InvoiceRepo) numberTaken(inv *entity.Invoice) bool {
	if inv.Number == "" {
		return false
	}
	for _, other := range r.snapshot() {
		if other.ID != inv.ID && other.TenantID == inv.TenantID && other.Number == inv.Number {
			return true
		}
	}
	return false
}

// Create guarda una factura nueva.
func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if r.lookup(inv.ID) != nil {
		return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, inv.ID)
	}
	if r.numberTaken(inv) {
		return fmt.Errorf("%w: número %s", domain.ErrDuplicate, inv.Number)
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	r.put(inv.Clone())
	return nil
}

// GetByID devuelve una copia del agregado.
func (r *InvoiceRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Invoice, error) {
	inv := r.lookup(id)
	if inv == nil || inv.TenantID != tenantID {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	return inv.Clone(), nil
}

// GetForUpdate igual que GetByID: el bloqueo lo da la transacción serializada.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, tenantID, id)
}

// Save reemplaza la factura si la versión coincide. Las líneas de una factura
// no borrador y los pagos ya cerrados conservan lo almacenado.
func (r *InvoiceRepo) Save(_ context.Context, inv *entity.Invoice) error {
	current := r.lookup(inv.ID)
	if current == nil || current.TenantID != inv.TenantID {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, inv.ID)
	}
	if current.Version != inv.Version {
		return fmt.Errorf("%w: factura %s versión %d", domain.ErrVersionConflict, inv.ID, inv.Version)
	}
	if r.numberTaken(inv) {
		return fmt.Errorf("%w: número %s", domain.ErrDuplicate, inv.Number)
	}

	next := inv.Clone()
	if inv.Status != entity.InvoiceStatusDraft {
		next.LineItems = current.Clone().LineItems
	}
	closed := make(map[string]*entity.Payment)
	for _, p := range current.Clone().Payments {
		if p.Status != entity.PaymentStatusPending {
			closed[p.ID] = p
		}
	}
	for i, p := range next.Payments {
		if stored, ok := closed[p.ID]; ok {
			next.Payments[i] = stored
		}
	}
	next.Version = inv.Version + 1
	r.put(next)
	inv.Version++
	return nil
}

// Delete elimina un borrador.
func (r *InvoiceRepo) Delete(_ context.Context, tenantID, id string) error {
	inv := r.lookup(id)
	if inv == nil || inv.TenantID != tenantID || inv.Status != entity.InvoiceStatusDraft {
		return fmt.Errorf("%w: borrador %s", domain.ErrNotFound, id)
	}
	if r.tx != nil {
		r.tx.invoices[id] = nil
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.invoices, id)
	return nil
}

// List filtra, ordena por creación descendente y pagina.
func (r *InvoiceRepo) List(_ context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	var matched []*entity.Invoice
	for _, inv := range r.snapshot() {
		if inv.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.CustomerRef != "" && inv.CustomerRef != f.CustomerRef {
			continue
		}
		matched = append(matched, inv)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	page := make([]*entity.Invoice, 0, end-start)
	for _, inv := range matched[start:end] {
		page = append(page, inv.Clone())
	}
	return page, total, nil
}

// ListOverdueIDs vencidas con saldo, de la más antigua a la más reciente.
func (r *InvoiceRepo) ListOverdueIDs(_ context.Context, now time.Time, limit int) ([]repository.OverdueRef, error) {
	var overdue []*entity.Invoice
	for _, inv := range r.snapshot() {
		if inv.IsOverdue(now) {
			overdue = append(overdue, inv)
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].DueAt.Before(*overdue[j].DueAt) })
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}
	refs := make([]repository.OverdueRef, 0, len(overdue))
	for _, inv := range overdue {
		refs = append(refs, repository.OverdueRef{TenantID: inv.TenantID, InvoiceID: inv.ID})
	}
	return refs, nil
}

// SequenceRepo consecutivo en memoria.
type SequenceRepo struct {
	s  *Store
	tx *txState
}

// Next incrementa el consecutivo del tenant para el año.
func (r *SequenceRepo) Next(_ context.Context, tenantID string, year int) (int64, error) {
	key := seqKey{tenantID: tenantID, year: year}
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		r.s.sequences[key]++
		return r.s.sequences[key], nil
	}
	n, ok := r.tx.sequences[key]
	if !ok {
		r.s.mu.RLock()
		n = r.s.sequences[key]
		r.s.mu.RUnlock()
	}
	n++
	r.tx.sequences[key] = n
	return n, nil
}
