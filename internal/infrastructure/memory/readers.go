package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// Warehouses lecturas de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository { return warehouseReader{s} }

// Products lecturas del catálogo.
func (s *Store) Products() repository.ProductRepository { return productReader{s} }

// Inventory lecturas del libro sin bloqueo.
func (s *Store) Inventory() repository.InventoryQueryRepository { return inventoryReader{s} }

// History lecturas del log de movimientos.
func (s *Store) History() repository.MovementHistoryRepository { return historyReader{s} }

type warehouseReader struct{ s *Store }

func (r warehouseReader) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w, ok := r.s.warehouses[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (r warehouseReader) GetByCode(_ context.Context, code string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.warehouses {
		if strings.EqualFold(w.Code, code) {
			out := w
			return &out, nil
		}
	}
	return nil, nil
}

type productReader struct{ s *Store }

func (r productReader) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.Barcode == code || p.SKU == code {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

type inventoryReader struct{ s *Store }

func (r inventoryReader) ListByProduct(_ context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	for _, rec := range r.s.Records() {
		if rec.ProductID == productID && (warehouseID == "" || rec.WarehouseID == warehouseID) {
			c := rec
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r inventoryReader) FindDuplicateKeys(_ context.Context, limit int) ([]entity.RecordKey, error) {
	return r.keys(limit, func(rows []entity.InventoryRecord) bool { return len(rows) > 1 }), nil
}

func (r inventoryReader) FindZeroKeys(_ context.Context, limit int) ([]entity.RecordKey, error) {
	return r.keys(limit, func(rows []entity.InventoryRecord) bool {
		for _, x := range rows {
			if x.Quantity.IsZero() {
				return true
			}
		}
		return false
	}), nil
}

func (r inventoryReader) keys(limit int, match func([]entity.InventoryRecord) bool) []entity.RecordKey {
	groups := make(map[entity.RecordKey][]entity.InventoryRecord)
	for _, rec := range r.s.Records() {
		groups[rec.RecordKey] = append(groups[rec.RecordKey], rec)
	}
	var out []entity.RecordKey
	for k, rows := range groups {
		if match(rows) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type historyReader struct{ s *Store }

func (r historyReader) ListByProduct(_ context.Context, productID string, f entity.HistoryFilter) ([]*entity.InventoryMovement, error) {
	all := r.s.Movements()
	var out []*entity.InventoryMovement
	// más recientes primero; a igual instante, el último insertado primero.
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.ProductID != productID {
			continue
		}
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		if f.From != nil && m.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.OccurredAt.Before(*f.To) {
			continue
		}
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r historyReader) ListByTransaction(_ context.Context, transactionID string) ([]*entity.InventoryMovement, error) {
	var out []*entity.InventoryMovement
	for _, m := range r.s.Movements() {
		if m.TransactionID == transactionID {
			c := m
			out = append(out, &c)
		}
	}
	return out, nil
}
