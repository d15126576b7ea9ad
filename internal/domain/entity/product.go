package entity

// Product es la vista de solo lectura del catálogo que necesita el motor de stock.
// Se resuelve por código de barras o por SKU.
type Product struct {
	ID      string
	SKU     string
	Barcode string
	Name    string
}
