package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo cerrado de movimiento de inventario.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementInbound    MovementKind = "INBOUND"    // entrada
	MovementOutbound   MovementKind = "OUTBOUND"   // salida (picking)
	MovementTransfer   MovementKind = "TRANSFER"   // traslado entre ubicaciones
	MovementAdjustment MovementKind = "ADJUSTMENT" // ajuste por conteo físico
)

// Valid indica si el tipo pertenece al conjunto cerrado.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementTransfer, MovementAdjustment:
		return true
	}
	return false
}

// Direction sentido del movimiento respecto al total del producto.
type Direction int8

const (
	DirectionNone Direction = 0  // traslado: no cambia el total
	DirectionIn   Direction = 1  // suma al total
	DirectionOut  Direction = -1 // resta del total
)

// InventoryMovement es un registro inmutable del log de movimientos.
// BinFrom/BinTo vacíos significan stock sin ubicación; qué lado aplica lo define Direction:
// IN usa solo BinTo, OUT solo BinFrom, NONE (traslado) ambos.
type InventoryMovement struct {
	ID            string
	TransactionID string
	Kind          MovementKind
	Direction     Direction
	WarehouseID   string
	BinFrom       string
	BinTo         string
	ProductID     string
	Quantity      decimal.Decimal // siempre > 0
	Actor         string
	Note          string
	OccurredAt    time.Time
}

// NewInbound construye un movimiento de entrada hacia binTo.
func NewInbound(warehouseID, binTo, productID string, qty decimal.Decimal) InventoryMovement {
	return InventoryMovement{Kind: MovementInbound, Direction: DirectionIn, WarehouseID: warehouseID, BinTo: binTo, ProductID: productID, Quantity: qty}
}

// NewOutbound construye un movimiento de salida desde binFrom.
func NewOutbound(warehouseID, binFrom, productID string, qty decimal.Decimal) InventoryMovement {
	return InventoryMovement{Kind: MovementOutbound, Direction: DirectionOut, WarehouseID: warehouseID, BinFrom: binFrom, ProductID: productID, Quantity: qty}
}

// NewTransfer construye un traslado entre dos ubicaciones de la misma bodega.
func NewTransfer(warehouseID, binFrom, binTo, productID string, qty decimal.Decimal) InventoryMovement {
	return InventoryMovement{Kind: MovementTransfer, Direction: DirectionNone, WarehouseID: warehouseID, BinFrom: binFrom, BinTo: binTo, ProductID: productID, Quantity: qty}
}

// NewAdjustment construye un ajuste a partir de la diferencia con signo (delta != 0).
func NewAdjustment(warehouseID, bin, productID string, delta decimal.Decimal) InventoryMovement {
	m := InventoryMovement{Kind: MovementAdjustment, WarehouseID: warehouseID, ProductID: productID, Quantity: delta.Abs()}
	if delta.IsNegative() {
		m.Direction = DirectionOut
		m.BinFrom = bin
	} else {
		m.Direction = DirectionIn
		m.BinTo = bin
	}
	return m
}

// Validate verifica las reglas del tipo cerrado: cantidad positiva, dirección coherente
// con el tipo y solo los lados de ubicación que le corresponden.
func (m InventoryMovement) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("movement: tipo inválido %q", m.Kind)
	}
	if m.WarehouseID == "" || m.ProductID == "" {
		return fmt.Errorf("movement: bodega y producto son obligatorios")
	}
	if !m.Quantity.IsPositive() {
		return fmt.Errorf("movement: la cantidad debe ser positiva, llegó %s", m.Quantity)
	}
	switch m.Kind {
	case MovementInbound:
		if m.Direction != DirectionIn || m.BinFrom != "" {
			return fmt.Errorf("movement: INBOUND solo admite ubicación destino")
		}
	case MovementOutbound:
		if m.Direction != DirectionOut || m.BinTo != "" {
			return fmt.Errorf("movement: OUTBOUND solo admite ubicación origen")
		}
	case MovementTransfer:
		if m.Direction != DirectionNone || m.BinFrom == "" || m.BinTo == "" || m.BinFrom == m.BinTo {
			return fmt.Errorf("movement: TRANSFER requiere origen y destino distintos")
		}
	case MovementAdjustment:
		switch m.Direction {
		case DirectionIn:
			if m.BinFrom != "" {
				return fmt.Errorf("movement: ajuste positivo solo admite ubicación destino")
			}
		case DirectionOut:
			if m.BinTo != "" {
				return fmt.Errorf("movement: ajuste negativo solo admite ubicación origen")
			}
		default:
			return fmt.Errorf("movement: ajuste sin dirección")
		}
	}
	return nil
}

// HistoryFilter filtro paginado por fecha para el historial de movimientos.
type HistoryFilter struct {
	WarehouseID string // vacío = todas
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// PickLine línea de la lista de picking que devuelve una asignación.
type PickLine struct {
	WarehouseID string
	BinID       string
	BinCode     string
	Quantity    decimal.Decimal
}
