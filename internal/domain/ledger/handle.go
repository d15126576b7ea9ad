package ledger

import (
	"fmt"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Handle representa una fila del libro ya bloqueada por la transacción en curso.
// Solo Ledger crea handles, de modo que no existe forma de mutar una cantidad sin el bloqueo.
type Handle struct {
	rec       entity.InventoryRecord
	persisted bool
	merged    []string // filas duplicadas absorbidas, se eliminan en Flush
	dirty     bool
}

func newHandle(key entity.RecordKey, rows []*entity.InventoryRecord) *Handle {
	if len(rows) == 0 {
		return &Handle{rec: entity.InventoryRecord{RecordKey: key, Quantity: decimal.Zero}}
	}
	h := &Handle{rec: *rows[0], persisted: true}
	h.rec.RecordKey = key
	for _, dup := range rows[1:] {
		h.rec.Quantity = h.rec.Quantity.Add(dup.Quantity)
		h.merged = append(h.merged, dup.ID)
	}
	h.dirty = len(h.merged) > 0
	return h
}

// Key llave de la fila.
func (h *Handle) Key() entity.RecordKey { return h.rec.RecordKey }

// Quantity cantidad actual (incluye cambios aún no persistidos).
func (h *Handle) Quantity() decimal.Decimal { return h.rec.Quantity }

// Merged cantidad de filas duplicadas absorbidas al bloquear.
func (h *Handle) Merged() int { return len(h.merged) }

// Record copia del estado actual de la fila.
func (h *Handle) Record() entity.InventoryRecord { return h.rec }

// Adjust suma delta (con signo) a la cantidad. Falla sin mutar con ErrNegativeQuantity si el
// resultado fuera menor que cero, o con ErrInvalidInput si no cabe en el libro.
func (h *Handle) Adjust(delta decimal.Decimal) (decimal.Decimal, error) {
	next := h.rec.Quantity.Add(delta)
	if next.IsNegative() {
		return h.rec.Quantity, fmt.Errorf("%w: %s %s %s", domain.ErrNegativeQuantity, h.rec.Quantity, signed(delta), h.rec.RecordKey)
	}
	if !entity.QuantityFits(next) {
		return h.rec.Quantity, fmt.Errorf("%w: %s %s %s excede la capacidad del libro", domain.ErrInvalidInput, h.rec.Quantity, signed(delta), h.rec.RecordKey)
	}
	if !delta.IsZero() {
		h.rec.Quantity = next
		h.dirty = true
	}
	return next, nil
}

// Set sobrescribe la cantidad (conteo físico) y devuelve la diferencia aplicada.
func (h *Handle) Set(qty decimal.Decimal) (decimal.Decimal, error) {
	if qty.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrNegativeQuantity, qty)
	}
	delta := qty.Sub(h.rec.Quantity)
	_, err := h.Adjust(delta)
	return delta, err
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return "- " + d.Abs().String()
	}
	return "+ " + d.String()
}
