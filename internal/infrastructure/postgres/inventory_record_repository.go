package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)
	_ repository.InventoryQueryRepository  = (*InventoryQueryRepo)(nil)
)

const recordSelect = `
	SELECT r.id, r.warehouse_id, r.bin_id, r.product_id, r.quantity, r.updated_at, b.code
	FROM inventory_records r
	LEFT JOIN storage_bins b ON b.id = r.bin_id`

// InventoryRecordRepo libro de inventario dentro de una transacción.
//
// Bloqueo por llave: pg_advisory_xact_lock sobre el hash de la llave, aunque la fila no exista
// todavía; así dos transacciones no pueden crear la misma llave a la vez. Luego las filas se leen
// con FOR UPDATE. Allocate bloquea filas (en orden de llave) sin advisory locks.
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador sobre una tx.
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

func (r *InventoryRecordRepo) LockKeys(ctx context.Context, keys []entity.RecordKey) error {
	for _, k := range keys {
		if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k.String()); err != nil {
			return dbError("lock inventory key", err)
		}
	}
	return nil
}

func (r *InventoryRecordRepo) ListByKey(ctx context.Context, key entity.RecordKey) ([]*entity.InventoryRecord, error) {
	query := recordSelect + `
		WHERE r.warehouse_id = $1 AND r.bin_id IS NOT DISTINCT FROM $2::uuid AND r.product_id = $3
		ORDER BY r.id
		FOR UPDATE OF r`
	rows, err := r.q.Query(ctx, query, key.WarehouseID, nullUUID(key.BinID), key.ProductID)
	if err != nil {
		return nil, dbError("list inventory records", err)
	}
	return scanRecords(rows)
}

func (r *InventoryRecordRepo) ListAvailableForUpdate(ctx context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error) {
	query := recordSelect + `
		WHERE r.product_id = $1 AND ($2::uuid IS NULL OR r.warehouse_id = $2::uuid) AND r.quantity > 0
		ORDER BY r.warehouse_id, r.bin_id NULLS FIRST, r.product_id, r.id
		FOR UPDATE OF r`
	rows, err := r.q.Query(ctx, query, productID, nullUUID(warehouseID))
	if err != nil {
		return nil, dbError("lock available stock", err)
	}
	return scanRecords(rows)
}

func (r *InventoryRecordRepo) Insert(ctx context.Context, rec *entity.InventoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_records (id, warehouse_id, bin_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, rec.ID, rec.WarehouseID, nullUUID(rec.BinID), rec.ProductID, rec.Quantity, rec.UpdatedAt)
	if err != nil {
		return dbError("insert inventory record", err)
	}
	return nil
}

func (r *InventoryRecordRepo) UpdateQuantity(ctx context.Context, id string, qty decimal.Decimal, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE inventory_records SET quantity = $2, updated_at = $3 WHERE id = $1`, id, qty, at)
	if err != nil {
		return dbError("update inventory record", err)
	}
	return nil
}

func (r *InventoryRecordRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM inventory_records WHERE id = $1`, id); err != nil {
		return dbError("delete inventory record", err)
	}
	return nil
}

// InventoryQueryRepo lecturas del libro sin bloqueo (sobre el pool).
type InventoryQueryRepo struct {
	q Querier
}

// NewInventoryQueryRepository construye el adaptador de lectura.
func NewInventoryQueryRepository(q Querier) *InventoryQueryRepo {
	return &InventoryQueryRepo{q: q}
}

func (r *InventoryQueryRepo) ListByProduct(ctx context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error) {
	query := recordSelect + `
		WHERE r.product_id = $1 AND ($2::uuid IS NULL OR r.warehouse_id = $2::uuid)
		ORDER BY r.warehouse_id, r.bin_id NULLS FIRST, r.id`
	rows, err := r.q.Query(ctx, query, productID, nullUUID(warehouseID))
	if err != nil {
		return nil, dbError("list on-hand", err)
	}
	return scanRecords(rows)
}

func (r *InventoryQueryRepo) FindDuplicateKeys(ctx context.Context, limit int) ([]entity.RecordKey, error) {
	return r.keys(ctx, `HAVING count(*) > 1`, limit)
}

func (r *InventoryQueryRepo) FindZeroKeys(ctx context.Context, limit int) ([]entity.RecordKey, error) {
	return r.keys(ctx, `HAVING bool_or(quantity = 0)`, limit)
}

func (r *InventoryQueryRepo) keys(ctx context.Context, having string, limit int) ([]entity.RecordKey, error) {
	query := `
		SELECT warehouse_id, bin_id, product_id
		FROM inventory_records
		GROUP BY warehouse_id, bin_id, product_id
		` + having + `
		ORDER BY warehouse_id, bin_id NULLS FIRST, product_id
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, dbError("find inventory keys", err)
	}
	defer rows.Close()
	var out []entity.RecordKey
	for rows.Next() {
		var k entity.RecordKey
		var bin *string
		if err := rows.Scan(&k.WarehouseID, &bin, &k.ProductID); err != nil {
			return nil, dbError("scan inventory key", err)
		}
		k.BinID = fromNull(bin)
		out = append(out, k)
	}
	return out, rows.Err()
}

func scanRecords(rows pgx.Rows) ([]*entity.InventoryRecord, error) {
	defer rows.Close()
	var list []*entity.InventoryRecord
	for rows.Next() {
		var rec entity.InventoryRecord
		var bin, code *string
		if err := rows.Scan(&rec.ID, &rec.WarehouseID, &bin, &rec.ProductID, &rec.Quantity, &rec.UpdatedAt, &code); err != nil {
			return nil, dbError("scan inventory record", err)
		}
		rec.BinID = fromNull(bin)
		rec.BinCode = fromNull(code)
		list = append(list, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate inventory records", err)
	}
	return list, nil
}
