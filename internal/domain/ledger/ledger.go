package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Ledger es el libro de inventario atado a una transacción. Bloquea filas, entrega handles y
// persiste sus cambios respetando sus reglas: una fila por llave, cantidad >= 0 y
// ninguna fila en cero.
type Ledger struct {
	records repository.InventoryRecordRepository
}

// New construye el libro sobre el repositorio de la transacción en curso.
func New(records repository.InventoryRecordRepository) *Ledger {
	return &Ledger{records: records}
}

// Lock bloquea las llaves en orden determinista y devuelve un handle por cada llave recibida
// (misma posición; llaves repetidas comparten handle). Si una llave no tiene fila, el handle
// arranca en cero (getOrCreate); si tiene duplicados se fusionan en el handle y se eliminan en Flush.
func (l *Ledger) Lock(ctx context.Context, keys ...entity.RecordKey) ([]*Handle, error) {
	ordered := SortKeys(keys)
	if err := l.records.LockKeys(ctx, ordered); err != nil {
		return nil, err
	}
	byKey := make(map[entity.RecordKey]*Handle, len(ordered))
	for _, k := range ordered {
		rows, err := l.records.ListByKey(ctx, k)
		if err != nil {
			return nil, err
		}
		byKey[k] = newHandle(k, rows)
	}
	out := make([]*Handle, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

// LockAvailable bloquea todas las filas con stock del producto (warehouseID vacío = todas las
// bodegas) y devuelve un handle por llave, en orden de llave.
func (l *Ledger) LockAvailable(ctx context.Context, productID, warehouseID string) ([]*Handle, error) {
	rows, err := l.records.ListAvailableForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	groups := make(map[entity.RecordKey][]*entity.InventoryRecord)
	var keys []entity.RecordKey
	for _, r := range rows {
		if _, ok := groups[r.RecordKey]; !ok {
			keys = append(keys, r.RecordKey)
		}
		groups[r.RecordKey] = append(groups[r.RecordKey], r)
	}
	keys = SortKeys(keys)
	handles := make([]*Handle, 0, len(keys))
	for _, k := range keys {
		handles = append(handles, newHandle(k, groups[k]))
	}
	return handles, nil
}

// FlushResult resumen de filas eliminadas al persistir.
type FlushResult struct {
	RowsRemoved int
}

// Flush persiste los handles: elimina duplicados absorbidos, elimina la fila si quedó en cero,
// inserta si es nueva o actualiza si cambió.
func (l *Ledger) Flush(ctx context.Context, now time.Time, handles ...*Handle) (FlushResult, error) {
	var res FlushResult
	seen := make(map[*Handle]struct{}, len(handles))
	for _, h := range handles {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		for _, id := range h.merged {
			if err := l.records.Delete(ctx, id); err != nil {
				return res, err
			}
			res.RowsRemoved++
		}
		h.merged = nil

		switch {
		case h.rec.Quantity.IsZero():
			if h.persisted {
				if err := l.records.Delete(ctx, h.rec.ID); err != nil {
					return res, err
				}
				h.persisted = false
				res.RowsRemoved++
			}
		case !h.persisted:
			h.rec.UpdatedAt = now
			if err := l.records.Insert(ctx, &h.rec); err != nil {
				return res, err
			}
			h.persisted = true
		case h.dirty:
			h.rec.UpdatedAt = now
			if err := l.records.UpdateQuantity(ctx, h.rec.ID, h.rec.Quantity, now); err != nil {
				return res, err
			}
		}
		h.dirty = false
	}
	return res, nil
}

// ConsolidationResult resultado de consolidar una llave.
type ConsolidationResult struct {
	Merged      bool // había más de una fila
	RowsRemoved int
	Quantity    decimal.Decimal // cantidad resultante
}

// Consolidate fusiona todas las filas de la llave en una sola (o ninguna si suman cero).
// Es idempotente: sobre una llave ya sana no escribe nada.
func (l *Ledger) Consolidate(ctx context.Context, key entity.RecordKey, now time.Time) (ConsolidationResult, error) {
	hs, err := l.Lock(ctx, key)
	if err != nil {
		return ConsolidationResult{}, fmt.Errorf("consolidate %s: %w", key, err)
	}
	h := hs[0]
	res := ConsolidationResult{Merged: h.Merged() > 0, Quantity: h.Quantity()}
	fr, err := l.Flush(ctx, now, h)
	if err != nil {
		return res, fmt.Errorf("consolidate %s: %w", key, err)
	}
	res.RowsRemoved = fr.RowsRemoved
	return res, nil
}
