package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: si fn devuelve error nada queda persistido y
// los bloqueos se liberan al terminar.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		binRepo repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
	) error) error
}

// Observer recibe el resultado de cada operación del motor (métricas).
type Observer interface {
	OperationDone(op string, took time.Duration, err error)
	RowsRemoved(op string, n int)
}

type nopObserver struct{}

func (nopObserver) OperationDone(string, time.Duration, error) {}
func (nopObserver) RowsRemoved(string, int)                    {}

// findWarehouse acepta el ID o el código humano de la bodega (sin distinguir mayúsculas).
func findWarehouse(ctx context.Context, repo repository.WarehouseRepository, ref string) (*entity.Warehouse, error) {
	ref = strings.TrimSpace(ref)
	wh, err := repo.GetByID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	if wh == nil {
		if wh, err = repo.GetByCode(ctx, ref); err != nil {
			return nil, fmt.Errorf("get warehouse by code: %w", err)
		}
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrWarehouseNotFound, ref)
	}
	return wh, nil
}
