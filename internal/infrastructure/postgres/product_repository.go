package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo consulta de catálogo de solo lectura sobre PostgreSQL.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByCode busca por código de barras y, si no hay, por SKU.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	query := `
		SELECT id, sku, COALESCE(barcode, ''), name
		FROM products
		WHERE barcode = $1 OR sku = $1
		ORDER BY (barcode = $1) IS TRUE DESC
		LIMIT 1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, code).Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("get product", err)
	}
	return &p, nil
}
