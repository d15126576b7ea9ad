package repository

import (
	"context"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de consulta del catálogo (solo lectura).
// GetByCode busca por código de barras o SKU; devuelve nil, nil si no existe.
type ProductRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
}
