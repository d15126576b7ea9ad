package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

var _ repository.StorageBinRepository = (*StorageBinRepo)(nil)

// StorageBinRepo ubicaciones sobre PostgreSQL. La unicidad sin distinguir mayúsculas la
// garantiza el índice único (warehouse_id, code_folded).
type StorageBinRepo struct {
	q Querier
}

// NewStorageBinRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStorageBinRepository(q Querier) *StorageBinRepo {
	return &StorageBinRepo{q: q}
}

const binColumns = `id, warehouse_id, code, code_folded, created_at`

func (r *StorageBinRepo) GetByCode(ctx context.Context, warehouseID, foldedCode string) (*entity.StorageBin, error) {
	query := `SELECT ` + binColumns + ` FROM storage_bins WHERE warehouse_id = $1 AND code_folded = $2`
	var b entity.StorageBin
	err := r.q.QueryRow(ctx, query, warehouseID, foldedCode).Scan(&b.ID, &b.WarehouseID, &b.Code, &b.CodeFolded, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("get storage bin", err)
	}
	return &b, nil
}

// CreateIfAbsent inserta con ON CONFLICT DO NOTHING; si otra transacción ganó la carrera
// (espera a que confirme) devuelve la fila existente.
func (r *StorageBinRepo) CreateIfAbsent(ctx context.Context, bin *entity.StorageBin) (*entity.StorageBin, error) {
	if bin.ID == "" {
		bin.ID = uuid.New().String()
	}
	if bin.CodeFolded == "" {
		bin.CodeFolded = entity.FoldBinCode(bin.Code)
	}
	if bin.CreatedAt.IsZero() {
		bin.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO storage_bins (` + binColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (warehouse_id, code_folded) DO NOTHING
		RETURNING ` + binColumns
	var b entity.StorageBin
	err := r.q.QueryRow(ctx, query, bin.ID, bin.WarehouseID, bin.Code, bin.CodeFolded, bin.CreatedAt).
		Scan(&b.ID, &b.WarehouseID, &b.Code, &b.CodeFolded, &b.CreatedAt)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, dbError("insert storage bin", err)
	}
	existing, err := r.GetByCode(ctx, bin.WarehouseID, bin.CodeFolded)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, dbError("insert storage bin", errors.New("conflicto sin fila visible"))
	}
	return existing, nil
}
