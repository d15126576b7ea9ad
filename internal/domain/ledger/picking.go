package ledger

import (
	"fmt"
	"sort"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Available stock disponible en una llave, entrada del planificador de picking.
type Available struct {
	Key      entity.RecordKey
	Quantity decimal.Decimal
}

// Take cantidad a retirar de una llave.
type Take struct {
	Key      entity.RecordKey
	Quantity decimal.Decimal
}

// PlanPicking reparte qty entre las ubicaciones con política voraz de mayor a menor cantidad
// (empates por orden de llave). Cuando alguna ubicación alcanza para cubrir lo que falta se
// usa la más pequeña que lo cubra, así se cierra el pedido sin vaciar ubicaciones grandes.
// Si el total disponible no alcanza devuelve ErrInsufficientStock y ningún retiro.
func PlanPicking(avail []Available, qty decimal.Decimal) ([]Take, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: cantidad %s", domain.ErrInvalidInput, qty)
	}
	total := decimal.Zero
	pool := make([]Available, 0, len(avail))
	for _, a := range avail {
		if !a.Quantity.IsPositive() {
			continue
		}
		total = total.Add(a.Quantity)
		pool = append(pool, a)
	}
	if total.LessThan(qty) {
		return nil, fmt.Errorf("%w: disponible %s, solicitado %s", domain.ErrInsufficientStock, total, qty)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if c := pool[i].Quantity.Cmp(pool[j].Quantity); c != 0 {
			return c > 0
		}
		return pool[i].Key.Less(pool[j].Key)
	})

	remaining := qty
	var takes []Take
	for remaining.IsPositive() {
		// pool está ordenado de mayor a menor: la última que cubre es la más pequeña.
		pick := 0
		for i, a := range pool {
			if a.Quantity.GreaterThanOrEqual(remaining) {
				pick = i
			}
		}
		a := pool[pick]
		take := decimal.Min(a.Quantity, remaining)
		takes = append(takes, Take{Key: a.Key, Quantity: take})
		remaining = remaining.Sub(take)
		pool = append(pool[:pick], pool[pick+1:]...)
	}
	return takes, nil
}
