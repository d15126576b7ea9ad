package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
)

// ReceiveRequest body para POST /api/stock/receive. bin_code vacío = stock sin ubicación.
type ReceiveRequest struct {
	WarehouseID string          `json:"warehouse_id"` // ID o código de la bodega
	BinCode     string          `json:"bin_code,omitempty"`
	ProductCode string          `json:"product_code"` // código de barras o SKU
	Quantity    decimal.Decimal `json:"quantity"`
	Note        string          `json:"note,omitempty"`
}

// TransferRequest body para POST /api/stock/transfer.
type TransferRequest struct {
	WarehouseID string          `json:"warehouse_id"`
	FromBinCode string          `json:"from_bin_code"`
	ToBinCode   string          `json:"to_bin_code"`
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Note        string          `json:"note,omitempty"`
}

// AllocateRequest body para POST /api/stock/allocate. warehouse_id vacío = todas las bodegas.
type AllocateRequest struct {
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	WarehouseID string          `json:"warehouse_id,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// AdjustmentRequest body para POST /api/stock/adjustments: quantity es la cantidad contada.
type AdjustmentRequest struct {
	WarehouseID string          `json:"warehouse_id"`
	BinCode     string          `json:"bin_code,omitempty"`
	ProductCode string          `json:"product_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Note        string          `json:"note"`
}

// RecordResponse estado de una fila del libro tras la operación.
type RecordResponse struct {
	WarehouseID string          `json:"warehouse_id"`
	BinID       string          `json:"bin_id,omitempty"`
	BinCode     string          `json:"bin_code,omitempty"`
	ProductID   string          `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Removed     bool            `json:"removed"` // llegó a cero y se eliminó
}

// MovementResponse salida de un movimiento del log.
type MovementResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Direction     int             `json:"direction"`
	WarehouseID   string          `json:"warehouse_id"`
	BinFrom       string          `json:"bin_from,omitempty"`
	BinTo         string          `json:"bin_to,omitempty"`
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Actor         string          `json:"actor,omitempty"`
	Note          string          `json:"note,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OperationResponse respuesta de receive, transfer y adjustments.
type OperationResponse struct {
	TransactionID string             `json:"transaction_id"`
	Records       []RecordResponse   `json:"records"`
	Movements     []MovementResponse `json:"movements"`
}

// PickLineResponse una línea de la lista de picking o del desglose de existencias.
type PickLineResponse struct {
	WarehouseID string          `json:"warehouse_id"`
	BinID       string          `json:"bin_id,omitempty"`
	BinCode     string          `json:"bin_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// AllocationResponse respuesta de allocate: la lista de picking en orden.
type AllocationResponse struct {
	TransactionID string             `json:"transaction_id"`
	Picks         []PickLineResponse `json:"picks"`
	Movements     []MovementResponse `json:"movements"`
}

// OnHandResponse existencias de un producto.
type OnHandResponse struct {
	ProductID string             `json:"product_id"`
	SKU       string             `json:"sku"`
	Barcode   string             `json:"barcode,omitempty"`
	Total     decimal.Decimal    `json:"total"`
	Lines     []PickLineResponse `json:"lines"`
}

// MovementListResponse historial paginado.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ToRecordResponse mapea una fila del libro.
func ToRecordResponse(r entity.InventoryRecord) RecordResponse {
	return RecordResponse{
		WarehouseID: r.WarehouseID,
		BinID:       r.BinID,
		BinCode:     r.BinCode,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		Removed:     r.Quantity.IsZero(),
	}
}

// ToMovementResponse mapea un movimiento.
func ToMovementResponse(m *entity.InventoryMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Kind:          string(m.Kind),
		Direction:     int(m.Direction),
		WarehouseID:   m.WarehouseID,
		BinFrom:       m.BinFrom,
		BinTo:         m.BinTo,
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		Actor:         m.Actor,
		Note:          m.Note,
		OccurredAt:    m.OccurredAt,
	}
}

// ToMovementResponses mapea una lista de movimientos; nunca devuelve nil.
func ToMovementResponses(list []*entity.InventoryMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out
}

// ToPickLines mapea líneas de picking o de existencias; nunca devuelve nil.
func ToPickLines(lines []entity.PickLine) []PickLineResponse {
	out := make([]PickLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, PickLineResponse{WarehouseID: l.WarehouseID, BinID: l.BinID, BinCode: l.BinCode, Quantity: l.Quantity})
	}
	return out
}
