package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKey identifica una fila del libro de inventario. BinID vacío = stock sin ubicación
// (a nivel de bodega).
type RecordKey struct {
	WarehouseID string
	BinID       string
	ProductID   string
}

// Less ordena llaves por bodega, luego ubicación, luego producto (orden de adquisición de bloqueos).
func (k RecordKey) Less(o RecordKey) bool {
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	if k.BinID != o.BinID {
		return k.BinID < o.BinID
	}
	return k.ProductID < o.ProductID
}

// String devuelve una representación estable de la llave (usada para bloqueos por llave).
func (k RecordKey) String() string {
	return k.WarehouseID + "|" + k.BinID + "|" + k.ProductID
}

// InventoryRecord es el stock disponible de un producto en una ubicación.
// Nunca se persiste con cantidad cero: al llegar a cero la fila se elimina.
type InventoryRecord struct {
	ID string
	RecordKey
	Quantity  decimal.Decimal
	UpdatedAt time.Time

	// Desnormalizado en lecturas (JOIN con storage_bins); vacío si BinID es vacío.
	BinCode string
}

// Límites de cantidad del libro; coinciden con la columna numeric(20, 6).
const QuantityScale = 6

// MaxQuantity cota superior exclusiva de una cantidad.
var MaxQuantity = decimal.New(1, 14)

// QuantityFits indica si la cantidad se almacena sin redondeo: a lo sumo QuantityScale decimales
// y valor absoluto menor que MaxQuantity.
func QuantityFits(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale)) && q.Abs().LessThan(MaxQuantity)
}
