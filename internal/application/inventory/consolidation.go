package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/ledger"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

// OpConsolidate nombre de la reparación reportado al Observer.
const OpConsolidate = "consolidate"

// RepairOptions configura la reparación.
type RepairOptions struct {
	PurgeZero bool // además elimina filas que quedaron en cero
	Batch     int  // llaves por consulta; <= 0 usa 500
	Observer  Observer
}

// RepairReport resumen de una ejecución de Repair.
type RepairReport struct {
	Scanned      int `json:"scanned"`
	GroupsMerged int `json:"groups_merged"`
	RowsRemoved  int `json:"rows_removed"`
	ZeroPurged   int `json:"zero_purged"`
	Failed       int `json:"failed"`
}

// ConsolidationUseCase fusiona filas duplicadas del libro. Cada llave se repara en su propia
// transacción con el mismo bloqueo por llave que usan las operaciones, así que puede correr
// junto a tráfico vivo. Es idempotente.
type ConsolidationUseCase struct {
	txRunner      TxRunner
	inventoryRepo repository.InventoryQueryRepository
	log           *logger.Logger
	opts          RepairOptions
	now           func() time.Time
}

// NewConsolidationUseCase construye el caso de uso de reparación.
func NewConsolidationUseCase(
	txRunner TxRunner,
	inventoryRepo repository.InventoryQueryRepository,
	log *logger.Logger,
	opts RepairOptions,
) *ConsolidationUseCase {
	if opts.Batch <= 0 {
		opts.Batch = 500
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ConsolidationUseCase{
		txRunner:      txRunner,
		inventoryRepo: inventoryRepo,
		log:           log,
		opts:          opts,
		now:           time.Now,
	}
}

// Repair consolida todas las llaves con más de una fila y, si PurgeZero, las que tienen filas
// en cero. Un grupo que falla se registra y se salta; solo un error al listar aborta.
func (uc *ConsolidationUseCase) Repair(ctx context.Context) (report RepairReport, err error) {
	defer uc.observe(time.Now(), &report, &err)

	failed := make(map[entity.RecordKey]struct{})
	if err := uc.pass(ctx, uc.inventoryRepo.FindDuplicateKeys, failed, &report, false); err != nil {
		return report, err
	}
	if uc.opts.PurgeZero {
		if err := uc.pass(ctx, uc.inventoryRepo.FindZeroKeys, failed, &report, true); err != nil {
			return report, err
		}
	}

	uc.log.Info().
		Int("scanned", report.Scanned).
		Int("groups_merged", report.GroupsMerged).
		Int("rows_removed", report.RowsRemoved).
		Int("zero_purged", report.ZeroPurged).
		Int("failed", report.Failed).
		Msg("consolidation finished")
	return report, nil
}

// pass consume lotes de llaves hasta que no queden pendientes nuevas.
func (uc *ConsolidationUseCase) pass(
	ctx context.Context,
	find func(context.Context, int) ([]entity.RecordKey, error),
	failed map[entity.RecordKey]struct{},
	report *RepairReport,
	zero bool,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		limit := uc.opts.Batch + len(failed)
		keys, err := find(ctx, limit)
		if err != nil {
			return err
		}
		progressed := false
		for _, k := range keys {
			if _, skip := failed[k]; skip {
				continue
			}
			progressed = true
			report.Scanned++
			res, err := uc.consolidate(ctx, k)
			if err != nil {
				failed[k] = struct{}{}
				report.Failed++
				uc.log.Warn().Err(err).
					Str("warehouse_id", k.WarehouseID).
					Str("bin_id", k.BinID).
					Str("product_id", k.ProductID).
					Msg("consolidation group failed")
				continue
			}
			if res.Merged {
				report.GroupsMerged++
			}
			if zero {
				report.ZeroPurged += res.RowsRemoved
			} else {
				report.RowsRemoved += res.RowsRemoved
			}
		}
		if !progressed || len(keys) < limit {
			return nil
		}
	}
}

func (uc *ConsolidationUseCase) consolidate(ctx context.Context, key entity.RecordKey) (ledger.ConsolidationResult, error) {
	var res ledger.ConsolidationResult
	err := uc.txRunner.Run(ctx, func(
		_ repository.StorageBinRepository,
		recordRepo repository.InventoryRecordRepository,
		_ repository.InventoryMovementRepository,
	) error {
		var err error
		res, err = ledger.New(recordRepo).Consolidate(ctx, key, uc.now())
		return err
	})
	return res, err
}

func (uc *ConsolidationUseCase) observe(start time.Time, report *RepairReport, errp *error) {
	uc.opts.Observer.OperationDone(OpConsolidate, time.Since(start), *errp)
	if n := report.RowsRemoved + report.ZeroPurged; n > 0 {
		uc.opts.Observer.RowsRemoved(OpConsolidate, n)
	}
}
