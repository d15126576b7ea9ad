package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/ledger"
)

// tx acumula cambios sobre el estado confirmado; nada es visible para otras
// transacciones hasta commit.
type tx struct {
	s       *Store
	held    map[string]struct{}
	order   []string
	records map[string]entity.InventoryRecord // filas insertadas o modificadas
	deleted map[string]struct{}
	bins    map[string]entity.StorageBin
	events  []entity.InventoryMovement
}

func newTx(s *Store) *tx {
	return &tx{
		s:       s,
		held:    make(map[string]struct{}),
		records: make(map[string]entity.InventoryRecord),
		deleted: make(map[string]struct{}),
		bins:    make(map[string]entity.StorageBin),
	}
}

func (t *tx) lock(ctx context.Context, name string) error {
	if _, ok := t.held[name]; ok {
		return nil
	}
	if err := t.s.acquire(ctx, name); err != nil {
		return err
	}
	t.held[name] = struct{}{}
	t.order = append(t.order, name)
	return nil
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.releaseLock(t.order[i])
	}
	t.order = nil
	t.held = map[string]struct{}{}
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, b := range t.bins {
		t.s.bins[id] = b
	}
	for id := range t.deleted {
		delete(t.s.records, id)
	}
	for id, r := range t.records {
		t.s.records[id] = r
	}
	t.s.movements = append(t.s.movements, t.events...)
}

// visible devuelve las filas que ve la transacción (confirmadas + propias) que cumplen match.
func (t *tx) visible(match func(entity.InventoryRecord) bool) []entity.InventoryRecord {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []entity.InventoryRecord
	for id, r := range t.s.records {
		if _, gone := t.deleted[id]; gone {
			continue
		}
		if own, ok := t.records[id]; ok {
			r = own
		}
		if match(r) {
			out = append(out, t.s.withBinCode(r))
		}
	}
	for id, r := range t.records {
		if _, committed := t.s.records[id]; committed {
			continue
		}
		if match(r) {
			out = append(out, t.s.withBinCode(r))
		}
	}
	sortRecords(out)
	return out
}

func keyLock(k entity.RecordKey) string { return "key:" + k.String() }

type binTx struct{ *tx }

func (b *binTx) GetByCode(_ context.Context, warehouseID, foldedCode string) (*entity.StorageBin, error) {
	return b.find(warehouseID, foldedCode), nil
}

func (b *binTx) CreateIfAbsent(ctx context.Context, bin *entity.StorageBin) (*entity.StorageBin, error) {
	if bin.CodeFolded == "" {
		bin.CodeFolded = entity.FoldBinCode(bin.Code)
	}
	if err := b.lock(ctx, "bin:"+bin.WarehouseID+"|"+bin.CodeFolded); err != nil {
		return nil, err
	}
	if existing := b.find(bin.WarehouseID, bin.CodeFolded); existing != nil {
		return existing, nil
	}
	if bin.ID == "" {
		bin.ID = uuid.New().String()
	}
	if bin.CreatedAt.IsZero() {
		bin.CreatedAt = time.Now()
	}
	b.bins[bin.ID] = *bin
	out := *bin
	return &out, nil
}

func (b *binTx) find(warehouseID, folded string) *entity.StorageBin {
	for _, sb := range b.tx.bins {
		if sb.WarehouseID == warehouseID && sb.CodeFolded == folded {
			out := sb
			return &out
		}
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, sb := range b.s.bins {
		if sb.WarehouseID == warehouseID && sb.CodeFolded == folded {
			out := sb
			return &out
		}
	}
	return nil
}

type recordTx struct{ *tx }

func (r *recordTx) LockKeys(ctx context.Context, keys []entity.RecordKey) error {
	for _, k := range keys {
		if err := r.lock(ctx, keyLock(k)); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordTx) ListByKey(ctx context.Context, key entity.RecordKey) ([]*entity.InventoryRecord, error) {
	if err := r.lock(ctx, keyLock(key)); err != nil {
		return nil, err
	}
	return pointers(r.visible(func(x entity.InventoryRecord) bool { return x.RecordKey == key })), nil
}

func (r *recordTx) ListAvailableForUpdate(ctx context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error) {
	match := func(x entity.InventoryRecord) bool {
		return x.ProductID == productID &&
			(warehouseID == "" || x.WarehouseID == warehouseID) &&
			x.Quantity.IsPositive()
	}
	var keys []entity.RecordKey
	for _, x := range r.visible(match) {
		keys = append(keys, x.RecordKey)
	}
	keys = ledger.SortKeys(keys)
	if err := r.LockKeys(ctx, keys); err != nil {
		return nil, err
	}
	locked := make(map[entity.RecordKey]struct{}, len(keys))
	for _, k := range keys {
		locked[k] = struct{}{}
	}
	return pointers(r.visible(func(x entity.InventoryRecord) bool {
		_, ok := locked[x.RecordKey]
		return ok && match(x)
	})), nil
}

func (r *recordTx) Insert(_ context.Context, rec *entity.InventoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	r.records[rec.ID] = *rec
	return nil
}

func (r *recordTx) UpdateQuantity(_ context.Context, id string, qty decimal.Decimal, at time.Time) error {
	cur, ok := r.records[id]
	if !ok {
		r.s.mu.Lock()
		cur, ok = r.s.records[id]
		r.s.mu.Unlock()
	}
	if _, gone := r.deleted[id]; !ok || gone {
		return fmt.Errorf("update inventory record %s: no existe", id)
	}
	cur.Quantity = qty
	cur.UpdatedAt = at
	r.records[id] = cur
	return nil
}

func (r *recordTx) Delete(_ context.Context, id string) error {
	delete(r.records, id)
	r.deleted[id] = struct{}{}
	return nil
}

type movementTx struct{ *tx }

func (m *movementTx) Append(_ context.Context, mov *entity.InventoryMovement) error {
	if err := mov.Validate(); err != nil {
		return err
	}
	if mov.ID == "" {
		mov.ID = uuid.New().String()
	}
	m.events = append(m.events, *mov)
	return nil
}

func pointers(rs []entity.InventoryRecord) []*entity.InventoryRecord {
	out := make([]*entity.InventoryRecord, len(rs))
	for i := range rs {
		out[i] = &rs[i]
	}
	return out
}
