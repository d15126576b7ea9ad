package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bodega-ledger/internal/application/dto"
	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

// InventoryHandler maneja las peticiones HTTP del motor de stock (protegido).
type InventoryHandler struct {
	stock  *inventory.StockUseCase
	query  *inventory.QueryUseCase
	repair *inventory.ConsolidationUseCase
	log    *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	stock *inventory.StockUseCase,
	query *inventory.QueryUseCase,
	repair *inventory.ConsolidationUseCase,
	log *logger.Logger,
) *InventoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryHandler{stock: stock, query: query, repair: repair, log: log}
}

// Receive godoc
// @Summary      Recibir mercancía en una ubicación
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "warehouse_id, bin_code (opcional), product_code, quantity, note"
// @Success      201   {object}  dto.OperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.stock.Receive(c.Context(), inventory.ReceiveInput{
		WarehouseID: in.WarehouseID,
		BinCode:     in.BinCode,
		ProductCode: in.ProductCode,
		Quantity:    in.Quantity,
		Actor:       GetUserID(c),
		Note:        in.Note,
	})
	if err != nil {
		return h.fail(c, "receive", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(res))
}

// Transfer godoc
// @Summary      Trasladar stock entre ubicaciones de una bodega
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "warehouse_id, from_bin_code, to_bin_code, product_code, quantity"
// @Success      201   {object}  dto.OperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.stock.Transfer(c.Context(), inventory.TransferInput{
		WarehouseID: in.WarehouseID,
		FromBinCode: in.FromBinCode,
		ToBinCode:   in.ToBinCode,
		ProductCode: in.ProductCode,
		Quantity:    in.Quantity,
		Actor:       GetUserID(c),
		Note:        in.Note,
	})
	if err != nil {
		return h.fail(c, "transfer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(res))
}

// Allocate godoc
// @Summary      Asignar stock para despacho (lista de picking)
// @Description  Toma de las ubicaciones con más stock primero. Todo o nada.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AllocateRequest  true  "product_code, quantity, warehouse_id (opcional)"
// @Success      201   {object}  dto.AllocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/allocate [post]
func (h *InventoryHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.stock.Allocate(c.Context(), inventory.AllocateInput{
		ProductCode: in.ProductCode,
		Quantity:    in.Quantity,
		WarehouseID: in.WarehouseID,
		Actor:       GetUserID(c),
		Note:        in.Note,
	})
	if err != nil {
		return h.fail(c, "allocate", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AllocationResponse{
		TransactionID: res.TransactionID,
		Picks:         dto.ToPickLines(res.Picks),
		Movements:     dto.ToMovementResponses(res.Movements),
	})
}

// Adjust godoc
// @Summary      Ajuste por conteo físico
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "warehouse_id, bin_code, product_code, quantity contada, note obligatoria"
// @Success      201   {object}  dto.OperationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.stock.Adjust(c.Context(), inventory.AdjustInput{
		WarehouseID: in.WarehouseID,
		BinCode:     in.BinCode,
		ProductCode: in.ProductCode,
		Quantity:    in.Quantity,
		Actor:       GetUserID(c),
		Note:        in.Note,
	})
	if err != nil {
		return h.fail(c, "adjust", err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOperationResponse(res))
}

// OnHand godoc
// @Summary      Existencias de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product       query  string  true   "Código de barras o SKU"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega (ID o código)"
// @Success      200  {object}  dto.OnHandResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/on-hand [get]
func (h *InventoryHandler) OnHand(c *fiber.Ctx) error {
	oh, err := h.query.OnHand(c.Context(), c.Query("product"), c.Query("warehouse_id"))
	if err != nil {
		return h.fail(c, "on-hand", err)
	}
	return c.JSON(dto.OnHandResponse{
		ProductID: oh.Product.ID,
		SKU:       oh.Product.SKU,
		Barcode:   oh.Product.Barcode,
		Total:     oh.Total,
		Lines:     dto.ToPickLines(oh.Lines),
	})
}

// History godoc
// @Summary      Historial de movimientos de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product       query  string  true   "Código de barras o SKU"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega (ID o código)"
// @Param        from          query  string  false  "RFC3339, inclusivo"
// @Param        to            query  string  false  "RFC3339, exclusivo"
// @Param        limit         query  int     false  "Máximo 500, por defecto 50"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidBody(c)
	}
	page.Normalize(inventory.DefaultHistoryLimit, inventory.MaxHistoryLimit)

	filter := entity.HistoryFilter{WarehouseID: c.Query("warehouse_id"), Limit: page.Limit, Offset: page.Offset}
	var err error
	if filter.From, err = parseTime(c.Query("from")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	if filter.To, err = parseTime(c.Query("to")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}

	list, err := h.query.History(c.Context(), c.Query("product"), filter)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: dto.ToMovementResponses(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Transaction godoc
// @Summary      Movimientos de una operación
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "transaction_id"
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/transactions/{id} [get]
func (h *InventoryHandler) Transaction(c *fiber.Ctx) error {
	list, err := h.query.Transaction(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, "transaction", err)
	}
	return c.JSON(dto.ToMovementResponses(list))
}

// Consolidate godoc
// @Summary      Reparar filas duplicadas del libro (admin)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  inventory.RepairReport
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/stock/consolidate [post]
func (h *InventoryHandler) Consolidate(c *fiber.Ctx) error {
	report, err := h.repair.Repair(c.Context())
	if err != nil {
		return h.fail(c, "consolidate", err)
	}
	return c.JSON(report)
}

// fail traduce los errores de dominio a HTTP. Los 500 se registran.
func (h *InventoryHandler) fail(c *fiber.Ctx, op string, err error) error {
	status, code := statusFor(err)
	msg := err.Error()
	switch status {
	case fiber.StatusServiceUnavailable:
		c.Set(fiber.HeaderRetryAfter, "1")
	case fiber.StatusInternalServerError:
		h.log.Error().Err(err).Str("op", op).Str("path", c.Path()).Msg("stock request failed")
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoOpTransfer):
		return fiber.StatusBadRequest, "NO_OP_TRANSFER"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrProductNotFound):
		return fiber.StatusNotFound, "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrWarehouseNotFound):
		return fiber.StatusNotFound, "WAREHOUSE_NOT_FOUND"
	case errors.Is(err, domain.ErrBinNotFound):
		return fiber.StatusNotFound, "BIN_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrLockTimeout):
		return fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toOperationResponse(res *inventory.OperationResult) dto.OperationResponse {
	out := dto.OperationResponse{
		TransactionID: res.TransactionID,
		Records:       make([]dto.RecordResponse, 0, len(res.Records)),
		Movements:     dto.ToMovementResponses(res.Movements),
	}
	for _, r := range res.Records {
		out.Records = append(out.Records, dto.ToRecordResponse(r))
	}
	return out
}
