package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación de solo lectura del puerto WarehouseRepository sobre PostgreSQL.
// El alta y edición de bodegas pertenecen a la administración.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

const warehouseSelect = `SELECT id, code, name, created_at, updated_at FROM warehouses`

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.get(ctx, warehouseSelect+` WHERE id = $1`, id)
}

// GetByCode obtiene una bodega por su código humano (sin distinguir mayúsculas).
func (r *WarehouseRepo) GetByCode(ctx context.Context, code string) (*entity.Warehouse, error) {
	return r.get(ctx, warehouseSelect+` WHERE lower(code) = lower($1)`, code)
}

func (r *WarehouseRepo) get(ctx context.Context, query string, arg string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, query, arg).Scan(&w.ID, &w.Code, &w.Name, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("get warehouse", err)
	}
	return &w, nil
}
