package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bodega-ledger/internal/application/dto"
	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/bodega-ledger/internal/interfaces/http"
)

type stockApp struct {
	app     *fiber.App
	store   *memory.Store
	wh      entity.Warehouse
	product entity.Product
}

func newStockApp(t *testing.T) *stockApp {
	return newStockAppWithRate(t, "")
}

func newStockAppWithRate(t *testing.T, rate string) *stockApp {
	t.Helper()
	rl, err := apphttp.NewRateLimiter(rate)
	require.NoError(t, err)
	s := memory.NewStore(100 * time.Millisecond)
	sa := &stockApp{
		store:   s,
		wh:      s.AddWarehouse(entity.Warehouse{Code: "BOG-01", Name: "Bogotá"}),
		product: s.AddProduct(entity.Product{SKU: "SKU-P", Barcode: "7701234000017", Name: "Producto P"}),
	}
	m := metrics.NewStockMetrics()
	sa.app = fiber.New()
	apphttp.Router(sa.app, apphttp.RouterDeps{
		Stock:         inventory.NewStockUseCase(s, s.Products(), s.Warehouses(), inventory.Options{AutoCreateBins: true, Observer: m}),
		Query:         inventory.NewQueryUseCase(s.Products(), s.Warehouses(), s.Inventory(), s.History()),
		Consolidation: inventory.NewConsolidationUseCase(s, s.Inventory(), nil, inventory.RepairOptions{PurgeZero: true, Observer: m}),
		Metrics:       m.Registry(),
		RateLimiter:   rl,
		JWTSecret:     testJWTSecret,
	})
	return sa
}

func (sa *stockApp) do(t *testing.T, method, path, role string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := sa.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (sa *stockApp) receive(t *testing.T, bin, qty string) *http.Response {
	return sa.do(t, http.MethodPost, "/api/stock/receive", apphttp.RoleBodeguero, dto.ReceiveRequest{
		WarehouseID: sa.wh.ID,
		BinCode:     bin,
		ProductCode: "SKU-P",
		Quantity:    decimal.RequireFromString(qty),
	})
}

func TestReceiveHandler_Crea201(t *testing.T) {
	sa := newStockApp(t)

	resp := sa.receive(t, "A-01", "5")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out dto.OperationResponse
	decodeInto(t, resp, &out)
	assert.NotEmpty(t, out.TransactionID)
	require.Len(t, out.Records, 1)
	assert.True(t, out.Records[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "A-01", out.Records[0].BinCode)
	require.Len(t, out.Movements, 1)
	assert.Equal(t, "INBOUND", out.Movements[0].Kind)
	assert.Equal(t, testUserID, out.Movements[0].Actor)
}

func TestReceiveHandler_VendedorNoPuedeMutar(t *testing.T) {
	sa := newStockApp(t)
	resp := sa.do(t, http.MethodPost, "/api/stock/receive", apphttp.RoleVendedor, dto.ReceiveRequest{
		WarehouseID: sa.wh.ID, ProductCode: "SKU-P", Quantity: decimal.NewFromInt(1),
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestReceiveHandler_SinToken401(t *testing.T) {
	sa := newStockApp(t)
	resp := sa.do(t, http.MethodPost, "/api/stock/receive", "", dto.ReceiveRequest{})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestStockHandlers_MapeoDeErrores(t *testing.T) {
	sa := newStockApp(t)
	require.Equal(t, fiber.StatusCreated, sa.receive(t, "A-01", "3").StatusCode)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "cantidad cero",
			path:   "/api/stock/receive",
			body:   dto.ReceiveRequest{WarehouseID: sa.wh.ID, ProductCode: "SKU-P", Quantity: decimal.Zero},
			status: fiber.StatusBadRequest,
			code:   "VALIDATION",
		},
		{
			name:   "producto inexistente",
			path:   "/api/stock/receive",
			body:   dto.ReceiveRequest{WarehouseID: sa.wh.ID, ProductCode: "NOPE", Quantity: decimal.NewFromInt(1)},
			status: fiber.StatusNotFound,
			code:   "PRODUCT_NOT_FOUND",
		},
		{
			name:   "bodega inexistente",
			path:   "/api/stock/receive",
			body:   dto.ReceiveRequest{WarehouseID: "00000000-0000-0000-0000-00000000ffff", ProductCode: "SKU-P", Quantity: decimal.NewFromInt(1)},
			status: fiber.StatusNotFound,
			code:   "WAREHOUSE_NOT_FOUND",
		},
		{
			name:   "traslado a la misma ubicación",
			path:   "/api/stock/transfer",
			body:   dto.TransferRequest{WarehouseID: sa.wh.ID, FromBinCode: "A-01", ToBinCode: "a-01", ProductCode: "SKU-P", Quantity: decimal.NewFromInt(1)},
			status: fiber.StatusBadRequest,
			code:   "NO_OP_TRANSFER",
		},
		{
			name:   "traslado sin stock suficiente",
			path:   "/api/stock/transfer",
			body:   dto.TransferRequest{WarehouseID: sa.wh.ID, FromBinCode: "A-01", ToBinCode: "B-01", ProductCode: "SKU-P", Quantity: decimal.NewFromInt(4)},
			status: fiber.StatusConflict,
			code:   "INSUFFICIENT_STOCK",
		},
		{
			name:   "asignación sin stock suficiente",
			path:   "/api/stock/allocate",
			body:   dto.AllocateRequest{ProductCode: "SKU-P", Quantity: decimal.NewFromInt(10)},
			status: fiber.StatusConflict,
			code:   "INSUFFICIENT_STOCK",
		},
		{
			name:   "ajuste sin nota",
			path:   "/api/stock/adjustments",
			body:   dto.AdjustmentRequest{WarehouseID: sa.wh.ID, BinCode: "A-01", ProductCode: "SKU-P", Quantity: decimal.NewFromInt(2)},
			status: fiber.StatusBadRequest,
			code:   "VALIDATION",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := sa.do(t, http.MethodPost, tc.path, apphttp.RoleAdmin, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			var e dto.ErrorResponse
			decodeInto(t, resp, &e)
			assert.Equal(t, tc.code, e.Code)
		})
	}

	// Ningún rechazo tocó el libro.
	var oh dto.OnHandResponse
	decodeInto(t, sa.do(t, http.MethodGet, "/api/stock/on-hand?product=SKU-P", apphttp.RoleVendedor, nil), &oh)
	assert.True(t, oh.Total.Equal(decimal.NewFromInt(3)))
}

func TestBodyInvalido400(t *testing.T) {
	sa := newStockApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/stock/allocate", bytes.NewBufferString("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleAdmin))
	resp, err := sa.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAllocateHandler_ListaDePicking(t *testing.T) {
	sa := newStockApp(t)
	for bin, qty := range map[string]string{"A": "5", "B": "3", "C": "10"} {
		require.Equal(t, fiber.StatusCreated, sa.receive(t, bin, qty).StatusCode)
	}

	resp := sa.do(t, http.MethodPost, "/api/stock/allocate", apphttp.RoleBodeguero, dto.AllocateRequest{
		ProductCode: "7701234000017",
		Quantity:    decimal.NewFromInt(12),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out dto.AllocationResponse
	decodeInto(t, resp, &out)
	require.Len(t, out.Picks, 2)
	assert.Equal(t, "C", out.Picks[0].BinCode)
	assert.True(t, out.Picks[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "B", out.Picks[1].BinCode)
	assert.True(t, out.Picks[1].Quantity.Equal(decimal.NewFromInt(2)))

	var oh dto.OnHandResponse
	decodeInto(t, sa.do(t, http.MethodGet, "/api/stock/on-hand?product=SKU-P&warehouse_id="+sa.wh.ID, apphttp.RoleVendedor, nil), &oh)
	assert.True(t, oh.Total.Equal(decimal.NewFromInt(6)))
	assert.Len(t, oh.Lines, 2)
}

func TestHistoryYTransaccion(t *testing.T) {
	sa := newStockApp(t)
	require.Equal(t, fiber.StatusCreated, sa.receive(t, "A-01", "5").StatusCode)

	resp := sa.do(t, http.MethodPost, "/api/stock/transfer", apphttp.RoleBodeguero, dto.TransferRequest{
		WarehouseID: sa.wh.ID, FromBinCode: "A-01", ToBinCode: "B-01", ProductCode: "SKU-P", Quantity: decimal.NewFromInt(2),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var op dto.OperationResponse
	decodeInto(t, resp, &op)

	var list dto.MovementListResponse
	decodeInto(t, sa.do(t, http.MethodGet, "/api/stock/movements?product=SKU-P", apphttp.RoleVendedor, nil), &list)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, inventory.DefaultHistoryLimit, list.Page.Limit)

	decodeInto(t, sa.do(t, http.MethodGet, "/api/stock/movements?product=SKU-P&limit=1", apphttp.RoleVendedor, nil), &list)
	assert.Len(t, list.Items, 1)

	var txMovs []dto.MovementResponse
	decodeInto(t, sa.do(t, http.MethodGet, "/api/stock/transactions/"+op.TransactionID, apphttp.RoleVendedor, nil), &txMovs)
	require.Len(t, txMovs, 1)
	assert.Equal(t, "TRANSFER", txMovs[0].Kind)

	assert.Equal(t, fiber.StatusNotFound,
		sa.do(t, http.MethodGet, "/api/stock/transactions/no-existe", apphttp.RoleVendedor, nil).StatusCode)
	assert.Equal(t, fiber.StatusBadRequest,
		sa.do(t, http.MethodGet, "/api/stock/movements?product=SKU-P&from=ayer", apphttp.RoleVendedor, nil).StatusCode)
}

func TestConsolidateHandler_SoloAdmin(t *testing.T) {
	sa := newStockApp(t)
	b := sa.store.AddBin(sa.wh.ID, "A-01")
	key := entity.RecordKey{WarehouseID: sa.wh.ID, BinID: b.ID, ProductID: sa.product.ID}
	sa.store.AddRecord(entity.InventoryRecord{RecordKey: key, Quantity: decimal.NewFromInt(2)})
	sa.store.AddRecord(entity.InventoryRecord{RecordKey: key, Quantity: decimal.NewFromInt(3)})

	assert.Equal(t, fiber.StatusForbidden,
		sa.do(t, http.MethodPost, "/api/stock/consolidate", apphttp.RoleBodeguero, nil).StatusCode)

	resp := sa.do(t, http.MethodPost, "/api/stock/consolidate", apphttp.RoleAdmin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var report inventory.RepairReport
	decodeInto(t, resp, &report)
	assert.Equal(t, 1, report.GroupsMerged)
	assert.Equal(t, 1, report.RowsRemoved)
	assert.Len(t, sa.store.Records(), 1)
}

func TestMetricsEndpoint(t *testing.T) {
	sa := newStockApp(t)
	require.Equal(t, fiber.StatusCreated, sa.receive(t, "A-01", "1").StatusCode)

	resp, err := sa.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `bodega_stock_operations_total{op="receive",result="ok"} 1`)
}

func TestRateLimit_MutacionesPorUsuario(t *testing.T) {
	sa := newStockAppWithRate(t, "2-M")

	first := sa.receive(t, "A-01", "1")
	require.Equal(t, fiber.StatusCreated, first.StatusCode)
	assert.Equal(t, "2", first.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, fiber.StatusCreated, sa.receive(t, "A-01", "1").StatusCode)

	resp := sa.receive(t, "A-01", "1")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	var e dto.ErrorResponse
	decodeInto(t, resp, &e)
	assert.Equal(t, "RATE_LIMITED", e.Code)

	// Las lecturas no consumen cupo.
	assert.Equal(t, fiber.StatusOK,
		sa.do(t, http.MethodGet, "/api/stock/on-hand?product=SKU-P", apphttp.RoleBodeguero, nil).StatusCode)
}

func TestNewRateLimiter_FormatoInvalido(t *testing.T) {
	_, err := apphttp.NewRateLimiter("muchas")
	assert.Error(t, err)

	rl, err := apphttp.NewRateLimiter("")
	require.NoError(t, err)
	assert.Nil(t, rl)
}
