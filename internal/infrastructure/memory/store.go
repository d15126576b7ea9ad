package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
)

// Store es un almacén transaccional en memoria con bloqueos por llave y tiempo de espera.
// Reproduce la disciplina del adaptador PostgreSQL (bloquear, mutar, confirmar o descartar)
// para pruebas y ejecuciones locales sin base de datos.
type Store struct {
	mu          sync.Mutex
	lockTimeout time.Duration

	warehouses map[string]entity.Warehouse
	products   map[string]entity.Product
	bins       map[string]entity.StorageBin
	records    map[string]entity.InventoryRecord
	movements  []entity.InventoryMovement
	locks      map[string]*namedLock
}

// namedLock semáforo de un nombre; refs cuenta dueño y esperas, en cero sale del mapa.
type namedLock struct {
	ch   chan struct{}
	refs int
}

// NewStore crea un almacén vacío. lockTimeout <= 0 usa 5 segundos.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{
		lockTimeout: lockTimeout,
		warehouses:  make(map[string]entity.Warehouse),
		products:    make(map[string]entity.Product),
		bins:        make(map[string]entity.StorageBin),
		records:     make(map[string]entity.InventoryRecord),
		locks:       make(map[string]*namedLock),
	}
}

// AddWarehouse registra una bodega (maestro externo). Asigna ID si viene vacío.
func (s *Store) AddWarehouse(w entity.Warehouse) entity.Warehouse {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.warehouses[w.ID] = w
	s.mu.Unlock()
	return w
}

// AddProduct registra un producto del catálogo.
func (s *Store) AddProduct(p entity.Product) entity.Product {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p
}

// AddBin registra una ubicación como lo haría la herramienta administrativa.
func (s *Store) AddBin(warehouseID, code string) entity.StorageBin {
	b := entity.StorageBin{
		ID:          uuid.New().String(),
		WarehouseID: warehouseID,
		Code:        code,
		CodeFolded:  entity.FoldBinCode(code),
		CreatedAt:   time.Now(),
	}
	s.mu.Lock()
	s.bins[b.ID] = b
	s.mu.Unlock()
	return b
}

// AddRecord inserta una fila sin validar unicidad; sirve para simular duplicados heredados.
func (s *Store) AddRecord(r entity.InventoryRecord) entity.InventoryRecord {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.records[r.ID] = r
	s.mu.Unlock()
	return r
}

// Records devuelve una copia de las filas confirmadas, ordenadas por llave e id.
func (s *Store) Records() []entity.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.InventoryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, s.withBinCode(r))
	}
	sortRecords(out)
	return out
}

// Movements devuelve una copia del log confirmado en orden de inserción.
func (s *Store) Movements() []entity.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.InventoryMovement(nil), s.movements...)
}

// Run ejecuta fn en una transacción: confirma si fn no falla, descarta en caso contrario.
// Los bloqueos tomados se liberan siempre al terminar.
func (s *Store) Run(ctx context.Context, fn func(
	bins repository.StorageBinRepository,
	records repository.InventoryRecordRepository,
	movements repository.InventoryMovementRepository,
) error) error {
	tx := newTx(s)
	defer tx.release()
	if err := fn(&binTx{tx}, &recordTx{tx}, &movementTx{tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// acquire toma el bloqueo nombrado esperando a lo sumo lockTimeout.
func (s *Store) acquire(ctx context.Context, name string) error {
	s.mu.Lock()
	l, ok := s.locks[name]
	if !ok {
		l = &namedLock{ch: make(chan struct{}, 1)}
		s.locks[name] = l
	}
	l.refs++
	s.mu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-timer.C:
		s.unref(name, l)
		return domain.ErrLockTimeout
	case <-ctx.Done():
		s.unref(name, l)
		return ctx.Err()
	}
}

func (s *Store) releaseLock(name string) {
	s.mu.Lock()
	l := s.locks[name]
	s.mu.Unlock()
	<-l.ch
	s.unref(name, l)
}

func (s *Store) unref(name string, l *namedLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.refs--; l.refs == 0 {
		delete(s.locks, name)
	}
}

// withBinCode desnormaliza el código de ubicación. Requiere s.mu.
func (s *Store) withBinCode(r entity.InventoryRecord) entity.InventoryRecord {
	if b, ok := s.bins[r.BinID]; ok {
		r.BinCode = b.Code
	}
	return r
}

func sortRecords(rs []entity.InventoryRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].RecordKey != rs[j].RecordKey {
			return rs[i].RecordKey.Less(rs[j].RecordKey)
		}
		return rs[i].ID < rs[j].ID
	})
}
