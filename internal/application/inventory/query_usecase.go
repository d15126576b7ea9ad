package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// Límites de paginación del historial.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// QueryUseCase consultas de solo lectura: no toman bloqueos y pueden observar una foto concurrente.
type QueryUseCase struct {
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	inventoryRepo repository.InventoryQueryRepository
	historyRepo   repository.MovementHistoryRepository
}

// NewQueryUseCase construye el caso de uso de consultas.
func NewQueryUseCase(
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	inventoryRepo repository.InventoryQueryRepository,
	historyRepo repository.MovementHistoryRepository,
) *QueryUseCase {
	return &QueryUseCase{
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		inventoryRepo: inventoryRepo,
		historyRepo:   historyRepo,
	}
}

// OnHand total disponible de un producto y su desglose por ubicación.
type OnHand struct {
	Product entity.Product
	Total   decimal.Decimal
	Lines   []entity.PickLine
}

// OnHand devuelve el stock del producto (warehouseID vacío = todas las bodegas), ordenado por llave.
// Si quedaran duplicados heredados se suman por llave.
func (uc *QueryUseCase) OnHand(ctx context.Context, productCode, warehouseID string) (*OnHand, error) {
	product, warehouseID, err := uc.resolve(ctx, productCode, warehouseID)
	if err != nil {
		return nil, err
	}
	rows, err := uc.inventoryRepo.ListByProduct(ctx, product.ID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list on-hand: %w", err)
	}

	out := &OnHand{Product: *product, Total: decimal.Zero}
	index := make(map[entity.RecordKey]int, len(rows))
	for _, r := range rows {
		if !r.Quantity.IsPositive() {
			continue
		}
		out.Total = out.Total.Add(r.Quantity)
		if i, ok := index[r.RecordKey]; ok {
			out.Lines[i].Quantity = out.Lines[i].Quantity.Add(r.Quantity)
			continue
		}
		index[r.RecordKey] = len(out.Lines)
		out.Lines = append(out.Lines, entity.PickLine{
			WarehouseID: r.WarehouseID,
			BinID:       r.BinID,
			BinCode:     r.BinCode,
			Quantity:    r.Quantity,
		})
	}
	return out, nil
}

// History devuelve los movimientos del producto, más recientes primero. From es inclusivo y To
// exclusivo; Limit se acota a [1, MaxHistoryLimit] (0 = DefaultHistoryLimit).
func (uc *QueryUseCase) History(ctx context.Context, productCode string, filter entity.HistoryFilter) ([]*entity.InventoryMovement, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: paginación negativa", domain.ErrInvalidInput)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	product, whID, err := uc.resolve(ctx, productCode, filter.WarehouseID)
	if err != nil {
		return nil, err
	}
	filter.WarehouseID = whID
	list, err := uc.historyRepo.ListByProduct(ctx, product.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return list, nil
}

// Transaction devuelve todos los movimientos de una operación.
func (uc *QueryUseCase) Transaction(ctx context.Context, transactionID string) ([]*entity.InventoryMovement, error) {
	if transactionID == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.historyRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list transaction: %w", err)
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list, nil
}

func (uc *QueryUseCase) resolve(ctx context.Context, productCode, warehouseRef string) (*entity.Product, string, error) {
	if productCode == "" {
		return nil, "", fmt.Errorf("%w: código de producto obligatorio", domain.ErrInvalidInput)
	}
	product, err := uc.productRepo.GetByCode(ctx, productCode)
	if err != nil {
		return nil, "", fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrProductNotFound, productCode)
	}
	if warehouseRef == "" {
		return product, "", nil
	}
	wh, err := findWarehouse(ctx, uc.warehouseRepo, warehouseRef)
	if err != nil {
		return nil, "", err
	}
	return product, wh.ID, nil
}
