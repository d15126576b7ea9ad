package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/bodega-ledger/internal/domain"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx: los repositorios funcionan con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isLockTimeout: 55P03 lock_not_available (lock_timeout agotado) o 40P01 deadlock_detected.
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03" || pgErr.Code == "40P01"
	}
	return false
}

// dbError envuelve un error del driver con la operación; los errores de bloqueo se traducen a
// domain.ErrLockTimeout para que el llamador pueda reintentar.
func dbError(op string, err error) error {
	if isLockTimeout(err) {
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrLockTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullUUID convierte "" en NULL (stock sin ubicación).
func nullUUID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func fromNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string { return strconv.Itoa(n) }

// isUUID evita enviar a la BD identificadores que fallarían al convertirse a uuid.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
