package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)
	_ repository.MovementHistoryRepository   = (*InventoryMovementRepo)(nil)
)

// InventoryMovementRepo log de movimientos: solo inserción y consultas de auditoría.
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar tx para Append, pool para consultas.
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

const movementColumns = `id, transaction_id, kind, direction, warehouse_id, bin_from, bin_to,
	product_id, quantity, actor, note, occurred_at`

// Append guarda el movimiento. La validación del tipo cerrado se repite aquí y en los CHECK de la tabla.
func (r *InventoryMovementRepo) Append(ctx context.Context, m *entity.InventoryMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `INSERT INTO movement_events (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, string(m.Kind), int16(m.Direction), m.WarehouseID,
		nullUUID(m.BinFrom), nullUUID(m.BinTo), m.ProductID, m.Quantity,
		m.Actor, m.Note, m.OccurredAt,
	)
	if err != nil {
		return dbError("insert movement", err)
	}
	return nil
}

// ListByProduct historial paginado, más reciente primero. From inclusivo, To exclusivo.
func (r *InventoryMovementRepo) ListByProduct(ctx context.Context, productID string, f entity.HistoryFilter) ([]*entity.InventoryMovement, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + movementColumns + ` FROM movement_events WHERE product_id = $1`)
	args := []any{productID}
	add := func(cond string, v any) {
		args = append(args, v)
		b.WriteString(" AND " + strings.ReplaceAll(cond, "?", "$"+itoa(len(args))))
	}
	if f.WarehouseID != "" {
		add("warehouse_id = ?", f.WarehouseID)
	}
	if f.From != nil {
		add("occurred_at >= ?", *f.From)
	}
	if f.To != nil {
		add("occurred_at < ?", *f.To)
	}
	args = append(args, f.Limit, f.Offset)
	b.WriteString(" ORDER BY occurred_at DESC, id DESC LIMIT $" + itoa(len(args)-1) + " OFFSET $" + itoa(len(args)))

	return r.list(ctx, b.String(), args...)
}

func (r *InventoryMovementRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.InventoryMovement, error) {
	if !isUUID(transactionID) {
		return nil, nil
	}
	query := `SELECT ` + movementColumns + ` FROM movement_events WHERE transaction_id = $1 ORDER BY occurred_at, id`
	return r.list(ctx, query, transactionID)
}

func (r *InventoryMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, dbError("list movements", err)
	}
	defer rows.Close()
	var list []*entity.InventoryMovement
	for rows.Next() {
		var m entity.InventoryMovement
		var kind string
		var dir int16
		var from, to *string
		if err := rows.Scan(&m.ID, &m.TransactionID, &kind, &dir, &m.WarehouseID, &from, &to,
			&m.ProductID, &m.Quantity, &m.Actor, &m.Note, &m.OccurredAt); err != nil {
			return nil, dbError("scan movement", err)
		}
		m.Kind = entity.MovementKind(kind)
		m.Direction = entity.Direction(dir)
		m.BinFrom, m.BinTo = fromNull(from), fromNull(to)
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate movements", err)
	}
	return list, nil
}
