package entity

import "time"

// Warehouse representa una bodega física. El núcleo de stock solo la referencia; su alta y edición
// pertenecen a la administración.
type Warehouse struct {
	ID        string
	Code      string // código humano (ej. "BOG-01")
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
