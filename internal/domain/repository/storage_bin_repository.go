package repository

import (
	"context"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
)

// StorageBinRepository define el puerto de persistencia para ubicaciones, atado a la transacción.
type StorageBinRepository interface {
	// GetByCode busca por bodega y código ya normalizado (entity.FoldBinCode). nil, nil si no existe.
	GetByCode(ctx context.Context, warehouseID, foldedCode string) (*entity.StorageBin, error)
	// CreateIfAbsent inserta la ubicación; si otra transacción la creó primero devuelve la existente.
	CreateIfAbsent(ctx context.Context, bin *entity.StorageBin) (*entity.StorageBin, error)
}
