package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// resolveBin busca la ubicación por código sin distinguir mayúsculas. Código vacío = sin ubicación
// (devuelve nil). Si no existe y create es false devuelve ErrBinNotFound; si create es true la crea
// (si otra transacción la creó primero, se usa esa).
func resolveBin(ctx context.Context, bins repository.StorageBinRepository, warehouseID, code string, create bool) (*entity.StorageBin, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	folded := entity.FoldBinCode(code)
	bin, err := bins.GetByCode(ctx, warehouseID, folded)
	if err != nil {
		return nil, err
	}
	if bin != nil {
		return bin, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %q", domain.ErrBinNotFound, code)
	}
	return bins.CreateIfAbsent(ctx, &entity.StorageBin{WarehouseID: warehouseID, Code: code, CodeFolded: folded})
}

func binID(b *entity.StorageBin) string {
	if b == nil {
		return ""
	}
	return b.ID
}

func binCode(b *entity.StorageBin) string {
	if b == nil {
		return ""
	}
	return b.Code
}
