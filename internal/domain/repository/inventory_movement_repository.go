package repository

import (
	"context"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
)

// InventoryMovementRepository define el puerto de escritura del log (solo inserción, dentro de la tx).
type InventoryMovementRepository interface {
	Append(ctx context.Context, movement *entity.InventoryMovement) error
}

// MovementHistoryRepository consultas de auditoría sobre el log, más recientes primero.
type MovementHistoryRepository interface {
	ListByProduct(ctx context.Context, productID string, filter entity.HistoryFilter) ([]*entity.InventoryMovement, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.InventoryMovement, error)
}
