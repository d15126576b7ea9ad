package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// StorageBin es una ubicación de almacenamiento dentro de una bodega.
// Code es único por bodega sin distinguir mayúsculas/minúsculas (ver FoldBinCode).
type StorageBin struct {
	ID          string
	WarehouseID string
	Code        string // tal como se registró
	CodeFolded  string // clave de unicidad
	CreatedAt   time.Time
}

// FoldBinCode normaliza un código de ubicación para comparación case-insensitive.
func FoldBinCode(code string) string {
	return cases.Fold().String(strings.TrimSpace(code))
}
