// Comando consolidate repara el libro de inventario: fusiona filas duplicadas por llave y,
// opcionalmente, elimina filas en cero. Pensado para correr una vez tras migrar datos heredados
// o de forma periódica (cron). Es idempotente.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/bodega-ledger/internal/application/inventory"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/bodega-ledger/pkg/config"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	purgeZero := flag.Bool("purge-zero", cfg.Stock.PurgeZero, "eliminar también filas con cantidad cero")
	batch := flag.Int("batch", cfg.Stock.RepairBatch, "llaves por lote")
	flag.Parse()

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	uc := inventory.NewConsolidationUseCase(
		postgres.NewTxRunner(pool, cfg.DB.LockTimeout()),
		postgres.NewInventoryQueryRepository(pool),
		log,
		inventory.RepairOptions{PurgeZero: *purgeZero, Batch: *batch},
	)
	report, err := uc.Repair(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reparación interrumpida")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if err != nil || report.Failed > 0 {
		pool.Close()
		os.Exit(1)
	}
}
