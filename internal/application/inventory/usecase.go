package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/ledger"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// Nombres de operación reportados al Observer.
const (
	OpReceive  = "receive"
	OpTransfer = "transfer"
	OpAllocate = "allocate"
	OpAdjust   = "adjust"
)

// Options configura el motor de stock.
type Options struct {
	// AutoCreateBins permite que Receive y el destino de Transfer creen la ubicación si no existe.
	AutoCreateBins bool
	Observer       Observer
	Now            func() time.Time
}

// StockUseCase es el motor de operaciones de stock: Receive, Transfer, Allocate y Adjust.
// Cada operación corre en una sola transacción; toda mutación del libro pasa por un handle
// obtenido al bloquear la fila, en orden determinista de llave.
type StockUseCase struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	opts          Options
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	opts Options,
) *StockUseCase {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &StockUseCase{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		opts:          opts,
	}
}

// ReceiveInput entrada de mercancía a una bodega; BinCode vacío = stock sin ubicación.
type ReceiveInput struct {
	WarehouseID string
	BinCode     string
	ProductCode string // código de barras o SKU
	Quantity    decimal.Decimal
	Actor       string
	Note        string
}

// TransferInput traslado entre dos ubicaciones de la misma bodega.
type TransferInput struct {
	WarehouseID string
	FromBinCode string
	ToBinCode   string
	ProductCode string
	Quantity    decimal.Decimal
	Actor       string
	Note        string
}

// AllocateInput solicitud de picking; WarehouseID vacío permite tomar de todas las bodegas.
type AllocateInput struct {
	ProductCode string
	Quantity    decimal.Decimal
	WarehouseID string
	Actor       string
	Note        string
}

// AdjustInput corrección por conteo físico: Quantity es la nueva cantidad absoluta.
type AdjustInput struct {
	WarehouseID string
	BinCode     string
	ProductCode string
	Quantity    decimal.Decimal
	Actor       string
	Note        string
}

// OperationResult resultado de Receive, Transfer y Adjust. Un registro con cantidad cero ya no
// existe en el libro.
type OperationResult struct {
	TransactionID string
	Records       []entity.InventoryRecord
	Movements     []*entity.InventoryMovement
}

// AllocationResult lista de picking en el orden en que se tomó cada ubicación.
type AllocationResult struct {
	TransactionID string
	Picks         []entity.PickLine
	Movements     []*entity.InventoryMovement
}

// Receive suma stock en la ubicación destino (creándola si está permitido) y registra un INBOUND.
func (uc *StockUseCase) Receive(ctx context.Context, in ReceiveInput) (res *OperationResult, err error) {
	defer uc.observe(OpReceive, time.Now(), &err)

	if in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: bodega obligatoria", domain.ErrInvalidInput)
	}
	if err := validQuantity(in.Quantity, false); err != nil {
		return nil, err
	}
	product, whID, err := uc.resolveScope(ctx, in.ProductCode, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	in.WarehouseID = whID

	now := uc.opts.Now()
	res = &OperationResult{TransactionID: uuid.New().String()}
	err = uc.txRunner.Run(ctx, func(
		binRepo repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		bin, err := resolveBin(ctx, binRepo, in.WarehouseID, in.BinCode, uc.opts.AutoCreateBins)
		if err != nil {
			return err
		}
		lg := ledger.New(recordRepo)
		key := entity.RecordKey{WarehouseID: in.WarehouseID, BinID: binID(bin), ProductID: product.ID}
		hs, err := lg.Lock(ctx, key)
		if err != nil {
			return err
		}
		if _, err := hs[0].Adjust(in.Quantity); err != nil {
			return err
		}
		if err := uc.flush(ctx, lg, OpReceive, now, hs...); err != nil {
			return err
		}

		mov := entity.NewInbound(in.WarehouseID, key.BinID, product.ID, in.Quantity)
		if err := uc.appendMovement(ctx, movRepo, &mov, res.TransactionID, in.Actor, in.Note, now); err != nil {
			return err
		}
		rec := hs[0].Record()
		rec.BinCode = binCode(bin)
		res.Records = []entity.InventoryRecord{rec}
		res.Movements = []*entity.InventoryMovement{&mov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Transfer mueve stock entre dos ubicaciones de la misma bodega. El origen debe existir; el
// destino se crea si está permitido. Registra exactamente un TRANSFER.
func (uc *StockUseCase) Transfer(ctx context.Context, in TransferInput) (res *OperationResult, err error) {
	defer uc.observe(OpTransfer, time.Now(), &err)

	if in.WarehouseID == "" || strings.TrimSpace(in.FromBinCode) == "" || strings.TrimSpace(in.ToBinCode) == "" {
		return nil, fmt.Errorf("%w: bodega y ubicaciones son obligatorias", domain.ErrInvalidInput)
	}
	if err := validQuantity(in.Quantity, false); err != nil {
		return nil, err
	}
	if entity.FoldBinCode(in.FromBinCode) == entity.FoldBinCode(in.ToBinCode) {
		return nil, domain.ErrNoOpTransfer
	}
	product, whID, err := uc.resolveScope(ctx, in.ProductCode, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	in.WarehouseID = whID

	now := uc.opts.Now()
	res = &OperationResult{TransactionID: uuid.New().String()}
	err = uc.txRunner.Run(ctx, func(
		binRepo repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		from, err := resolveBin(ctx, binRepo, in.WarehouseID, in.FromBinCode, false)
		if err != nil {
			return err
		}
		to, err := resolveBin(ctx, binRepo, in.WarehouseID, in.ToBinCode, uc.opts.AutoCreateBins)
		if err != nil {
			return err
		}
		if from.ID == to.ID {
			return domain.ErrNoOpTransfer
		}

		lg := ledger.New(recordRepo)
		srcKey := entity.RecordKey{WarehouseID: in.WarehouseID, BinID: from.ID, ProductID: product.ID}
		dstKey := entity.RecordKey{WarehouseID: in.WarehouseID, BinID: to.ID, ProductID: product.ID}
		hs, err := lg.Lock(ctx, srcKey, dstKey)
		if err != nil {
			return err
		}
		src, dst := hs[0], hs[1]
		if src.Quantity().LessThan(in.Quantity) {
			return fmt.Errorf("%w: %s disponible en %q, solicitado %s", domain.ErrInsufficientStock, src.Quantity(), from.Code, in.Quantity)
		}
		if _, err := src.Adjust(in.Quantity.Neg()); err != nil {
			return err
		}
		if _, err := dst.Adjust(in.Quantity); err != nil {
			return err
		}
		if err := uc.flush(ctx, lg, OpTransfer, now, src, dst); err != nil {
			return err
		}

		mov := entity.NewTransfer(in.WarehouseID, from.ID, to.ID, product.ID, in.Quantity)
		if err := uc.appendMovement(ctx, movRepo, &mov, res.TransactionID, in.Actor, in.Note, now); err != nil {
			return err
		}
		srcRec, dstRec := src.Record(), dst.Record()
		srcRec.BinCode, dstRec.BinCode = from.Code, to.Code
		res.Records = []entity.InventoryRecord{srcRec, dstRec}
		res.Movements = []*entity.InventoryMovement{&mov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Allocate toma stock del producto desde una o varias ubicaciones (de mayor a menor cantidad)
// y registra un OUTBOUND por ubicación tocada. Si el total no alcanza no se modifica nada.
func (uc *StockUseCase) Allocate(ctx context.Context, in AllocateInput) (res *AllocationResult, err error) {
	defer uc.observe(OpAllocate, time.Now(), &err)

	if err := validQuantity(in.Quantity, false); err != nil {
		return nil, err
	}
	product, whID, err := uc.resolveScope(ctx, in.ProductCode, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	in.WarehouseID = whID

	now := uc.opts.Now()
	res = &AllocationResult{TransactionID: uuid.New().String()}
	err = uc.txRunner.Run(ctx, func(
		_ repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		lg := ledger.New(recordRepo)
		hs, err := lg.LockAvailable(ctx, product.ID, in.WarehouseID)
		if err != nil {
			return err
		}
		byKey := make(map[entity.RecordKey]*ledger.Handle, len(hs))
		avail := make([]ledger.Available, 0, len(hs))
		for _, h := range hs {
			byKey[h.Key()] = h
			avail = append(avail, ledger.Available{Key: h.Key(), Quantity: h.Quantity()})
		}
		takes, err := ledger.PlanPicking(avail, in.Quantity)
		if err != nil {
			return err
		}

		for _, tk := range takes {
			h := byKey[tk.Key]
			code := h.Record().BinCode
			if _, err := h.Adjust(tk.Quantity.Neg()); err != nil {
				return err
			}
			mov := entity.NewOutbound(tk.Key.WarehouseID, tk.Key.BinID, product.ID, tk.Quantity)
			if err := uc.appendMovement(ctx, movRepo, &mov, res.TransactionID, in.Actor, in.Note, now); err != nil {
				return err
			}
			res.Movements = append(res.Movements, &mov)
			res.Picks = append(res.Picks, entity.PickLine{
				WarehouseID: tk.Key.WarehouseID,
				BinID:       tk.Key.BinID,
				BinCode:     code,
				Quantity:    tk.Quantity,
			})
		}
		// Se persisten todos los handles: los no tocados solo escriben si absorbieron duplicados.
		return uc.flush(ctx, lg, OpAllocate, now, hs...)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Adjust sobrescribe la cantidad de una llave con el resultado de un conteo físico. La nota es
// obligatoria y la ubicación debe existir. Si la cantidad no cambia no se registra movimiento.
func (uc *StockUseCase) Adjust(ctx context.Context, in AdjustInput) (res *OperationResult, err error) {
	defer uc.observe(OpAdjust, time.Now(), &err)

	if in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: bodega obligatoria", domain.ErrInvalidInput)
	}
	if err := validQuantity(in.Quantity, true); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Note) == "" {
		return nil, fmt.Errorf("%w: el ajuste requiere una nota", domain.ErrInvalidInput)
	}
	product, whID, err := uc.resolveScope(ctx, in.ProductCode, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	in.WarehouseID = whID

	now := uc.opts.Now()
	res = &OperationResult{TransactionID: uuid.New().String()}
	err = uc.txRunner.Run(ctx, func(
		binRepo repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		bin, err := resolveBin(ctx, binRepo, in.WarehouseID, in.BinCode, false)
		if err != nil {
			return err
		}
		lg := ledger.New(recordRepo)
		key := entity.RecordKey{WarehouseID: in.WarehouseID, BinID: binID(bin), ProductID: product.ID}
		hs, err := lg.Lock(ctx, key)
		if err != nil {
			return err
		}
		delta, err := hs[0].Set(in.Quantity)
		if err != nil {
			return err
		}
		if err := uc.flush(ctx, lg, OpAdjust, now, hs...); err != nil {
			return err
		}
		rec := hs[0].Record()
		rec.BinCode = binCode(bin)
		res.Records = []entity.InventoryRecord{rec}
		if delta.IsZero() {
			return nil
		}

		mov := entity.NewAdjustment(in.WarehouseID, key.BinID, product.ID, delta)
		if err := uc.appendMovement(ctx, movRepo, &mov, res.TransactionID, in.Actor, in.Note, now); err != nil {
			return err
		}
		res.Movements = []*entity.InventoryMovement{&mov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveScope valida producto y, si viene, la bodega; devuelve el ID canónico de la bodega.
// Se hace fuera de la transacción: son maestros de solo lectura.
func (uc *StockUseCase) resolveScope(ctx context.Context, productCode, warehouseRef string) (*entity.Product, string, error) {
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return nil, "", fmt.Errorf("%w: código de producto obligatorio", domain.ErrInvalidInput)
	}
	product, err := uc.productRepo.GetByCode(ctx, productCode)
	if err != nil {
		return nil, "", fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrProductNotFound, productCode)
	}
	if warehouseRef == "" {
		return product, "", nil
	}
	wh, err := findWarehouse(ctx, uc.warehouseRepo, warehouseRef)
	if err != nil {
		return nil, "", err
	}
	return product, wh.ID, nil
}

func (uc *StockUseCase) flush(ctx context.Context, lg *ledger.Ledger, op string, now time.Time, hs ...*ledger.Handle) error {
	fr, err := lg.Flush(ctx, now, hs...)
	if err != nil {
		return err
	}
	if fr.RowsRemoved > 0 {
		uc.opts.Observer.RowsRemoved(op, fr.RowsRemoved)
	}
	return nil
}

func (uc *StockUseCase) appendMovement(
	ctx context.Context,
	movRepo repository.InventoryMovementRepository,
	mov *entity.InventoryMovement,
	txID, actor, note string,
	now time.Time,
) error {
	mov.TransactionID = txID
	mov.Actor = actor
	mov.Note = strings.TrimSpace(note)
	mov.OccurredAt = now
	if err := mov.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := movRepo.Append(ctx, mov); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (uc *StockUseCase) observe(op string, start time.Time, errp *error) {
	uc.opts.Observer.OperationDone(op, time.Since(start), *errp)
}

// validQuantity rechaza cantidades que el libro no puede guardar exactas. El ajuste admite cero.
func validQuantity(q decimal.Decimal, allowZero bool) error {
	if q.IsNegative() || (!allowZero && q.IsZero()) {
		return fmt.Errorf("%w: la cantidad debe ser positiva, llegó %s", domain.ErrInvalidInput, q)
	}
	if !entity.QuantityFits(q) {
		return fmt.Errorf("%w: cantidad %s fuera de rango (máximo %d decimales y menor que %s)",
			domain.ErrInvalidInput, q, entity.QuantityScale, entity.MaxQuantity)
	}
	return nil
}

// IsClientError indica si el error se debe a los datos de entrada (no reintentable tal cual).
func IsClientError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput, domain.ErrProductNotFound, domain.ErrWarehouseNotFound,
		domain.ErrBinNotFound, domain.ErrNoOpTransfer, domain.ErrInsufficientStock,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
