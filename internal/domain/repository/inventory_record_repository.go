package repository

import (
	"context"
	"time"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryRecordRepository define el puerto del libro de inventario dentro de una transacción.
// Todas las lecturas de este puerto bloquean; solo debe usarse desde ledger.Ledger.
type InventoryRecordRepository interface {
	// LockKeys toma el bloqueo exclusivo de cada llave (exista o no la fila), en el orden recibido.
	LockKeys(ctx context.Context, keys []entity.RecordKey) error
	// ListByKey devuelve todas las filas de la llave (puede haber duplicados heredados), bloqueadas.
	ListByKey(ctx context.Context, key entity.RecordKey) ([]*entity.InventoryRecord, error)
	// ListAvailableForUpdate bloquea, en orden de llave, las filas con cantidad > 0 del producto.
	// warehouseID vacío = todas las bodegas.
	ListAvailableForUpdate(ctx context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error)
	Insert(ctx context.Context, rec *entity.InventoryRecord) error
	UpdateQuantity(ctx context.Context, id string, qty decimal.Decimal, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// InventoryQueryRepository lecturas sin bloqueo (pueden observar una foto concurrente).
type InventoryQueryRepository interface {
	ListByProduct(ctx context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error)
	// FindDuplicateKeys devuelve llaves con más de una fila, ordenadas.
	FindDuplicateKeys(ctx context.Context, limit int) ([]entity.RecordKey, error)
	// FindZeroKeys devuelve llaves con alguna fila en cantidad cero, ordenadas.
	FindZeroKeys(ctx context.Context, limit int) ([]entity.RecordKey, error)
}
