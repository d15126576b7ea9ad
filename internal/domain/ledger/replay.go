package ledger

import (
	"fmt"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Replay reconstruye el stock por llave aplicando los movimientos desde cero.
// Las llaves que terminan en cero se omiten, igual que en el libro.
func Replay(movements []*entity.InventoryMovement) (map[entity.RecordKey]decimal.Decimal, error) {
	out := make(map[entity.RecordKey]decimal.Decimal)
	apply := func(bin, productID, warehouseID string, delta decimal.Decimal) {
		k := entity.RecordKey{WarehouseID: warehouseID, BinID: bin, ProductID: productID}
		out[k] = out[k].Add(delta)
	}
	for _, m := range movements {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("replay %s: %w", m.ID, err)
		}
		switch m.Direction {
		case entity.DirectionIn:
			apply(m.BinTo, m.ProductID, m.WarehouseID, m.Quantity)
		case entity.DirectionOut:
			apply(m.BinFrom, m.ProductID, m.WarehouseID, m.Quantity.Neg())
		case entity.DirectionNone:
			apply(m.BinFrom, m.ProductID, m.WarehouseID, m.Quantity.Neg())
			apply(m.BinTo, m.ProductID, m.WarehouseID, m.Quantity)
		}
	}
	for k, q := range out {
		if q.IsZero() {
			delete(out, k)
		}
	}
	return out, nil
}

// Total suma las cantidades de un mapa de llaves.
func Total(byKey map[entity.RecordKey]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, q := range byKey {
		total = total.Add(q)
	}
	return total
}
