package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/ledger"
)

// fakeRecords implementa el puerto del libro en memoria y registra el orden de bloqueo.
type fakeRecords struct {
	rows   map[string]*entity.InventoryRecord
	locked []entity.RecordKey
	seq    int
}

func newFakeRecords(rows ...entity.InventoryRecord) *fakeRecords {
	f := &fakeRecords{rows: map[string]*entity.InventoryRecord{}}
	for i := range rows {
		r := rows[i]
		f.rows[r.ID] = &r
	}
	return f
}

func (f *fakeRecords) LockKeys(_ context.Context, keys []entity.RecordKey) error {
	f.locked = append(f.locked, keys...)
	return nil
}

func (f *fakeRecords) ListByKey(_ context.Context, key entity.RecordKey) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	for _, r := range f.rows {
		if r.RecordKey == key {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRecords) ListAvailableForUpdate(_ context.Context, productID, warehouseID string) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	for _, r := range f.rows {
		if r.ProductID == productID && (warehouseID == "" || r.WarehouseID == warehouseID) && r.Quantity.IsPositive() {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordKey != out[j].RecordKey {
			return out[i].RecordKey.Less(out[j].RecordKey)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRecords) Insert(_ context.Context, rec *entity.InventoryRecord) error {
	if rec.ID == "" {
		f.seq++
		rec.ID = fmt.Sprintf("new-%d", f.seq)
	}
	c := *rec
	f.rows[rec.ID] = &c
	return nil
}

func (f *fakeRecords) UpdateQuantity(_ context.Context, id string, qty decimal.Decimal, at time.Time) error {
	r, ok := f.rows[id]
	if !ok {
		return errors.New("no existe")
	}
	r.Quantity = qty
	r.UpdatedAt = at
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRecords) byKey(k entity.RecordKey) []*entity.InventoryRecord {
	rows, _ := f.ListByKey(context.Background(), k)
	return rows
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	keyA = entity.RecordKey{WarehouseID: "w1", BinID: "a", ProductID: "p"}
	keyB = entity.RecordKey{WarehouseID: "w1", BinID: "b", ProductID: "p"}
	keyU = entity.RecordKey{WarehouseID: "w1", BinID: "", ProductID: "p"}
)

func rec(id string, k entity.RecordKey, qty string) entity.InventoryRecord {
	return entity.InventoryRecord{ID: id, RecordKey: k, Quantity: d(qty)}
}

func TestLock_OrdenDeterministaYHandlesAlineados(t *testing.T) {
	f := newFakeRecords(rec("1", keyA, "5"))
	l := ledger.New(f)

	hs, err := l.Lock(context.Background(), keyB, keyA, keyB)
	require.NoError(t, err)
	require.Len(t, hs, 3)

	assert.Equal(t, []entity.RecordKey{keyA, keyB}, f.locked, "bloquea sin duplicados y en orden ascendente")
	assert.Same(t, hs[0], hs[2], "llaves repetidas comparten handle")
	assert.True(t, hs[1].Quantity().Equal(d("5")))
	assert.True(t, hs[0].Quantity().IsZero(), "llave ausente arranca en cero")
}

func TestSortKeys_SinUbicacionPrimero(t *testing.T) {
	keys := ledger.SortKeys([]entity.RecordKey{keyB, keyU, keyA, keyU})
	assert.Equal(t, []entity.RecordKey{keyU, keyA, keyB}, keys)
}

func TestAdjust_RechazaNegativoSinMutar(t *testing.T) {
	f := newFakeRecords(rec("1", keyA, "3"))
	hs, err := ledger.New(f).Lock(context.Background(), keyA)
	require.NoError(t, err)

	_, err = hs[0].Adjust(d("-3.0001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNegativeQuantity))
	assert.True(t, hs[0].Quantity().Equal(d("3")))
}

func TestAdjust_RechazaCantidadQueNoCabe(t *testing.T) {
	f := newFakeRecords(rec("1", keyA, "99999999999999"))
	hs, err := ledger.New(f).Lock(context.Background(), keyA)
	require.NoError(t, err)

	_, err = hs[0].Adjust(d("1"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = hs[0].Adjust(d("-0.0000001"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.True(t, hs[0].Quantity().Equal(d("99999999999999")))
}

func TestQuantityFits(t *testing.T) {
	assert.True(t, entity.QuantityFits(d("0.000001")))
	assert.True(t, entity.QuantityFits(d("2.5000000")))
	assert.True(t, entity.QuantityFits(d("99999999999999.999999")))
	assert.False(t, entity.QuantityFits(d("0.0000005")))
	assert.False(t, entity.QuantityFits(d("100000000000000")))
}

func TestFlush_CreaActualizaYEliminaEnCero(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	f := newFakeRecords(rec("1", keyA, "5"))
	l := ledger.New(f)

	hs, err := l.Lock(ctx, keyA, keyB)
	require.NoError(t, err)
	_, err = hs[0].Adjust(d("-5"))
	require.NoError(t, err)
	_, err = hs[1].Adjust(d("5"))
	require.NoError(t, err)

	res, err := l.Flush(ctx, now, hs...)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsRemoved)
	assert.Empty(t, f.byKey(keyA), "la fila en cero se elimina")
	rows := f.byKey(keyB)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Quantity.Equal(d("5")))
}

func TestFlush_HandleSinCambiosNoEscribe(t *testing.T) {
	ctx := context.Background()
	f := newFakeRecords()
	l := ledger.New(f)
	hs, err := l.Lock(ctx, keyA)
	require.NoError(t, err)

	_, err = l.Flush(ctx, time.Now(), hs...)
	require.NoError(t, err)
	assert.Empty(t, f.rows, "getOrCreate en cero no deja fila persistida")
}

func TestConsolidate_FusionaDuplicados(t *testing.T) {
	ctx := context.Background()
	f := newFakeRecords(rec("1", keyA, "2"), rec("2", keyA, "3.5"), rec("3", keyA, "1"), rec("4", keyB, "4"))
	l := ledger.New(f)

	res, err := l.Consolidate(ctx, keyA, time.Now())
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, 2, res.RowsRemoved)
	assert.True(t, res.Quantity.Equal(d("6.5")))

	rows := f.byKey(keyA)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID, "sobrevive la primera fila por id")
	assert.True(t, rows[0].Quantity.Equal(d("6.5")))
	assert.Len(t, f.byKey(keyB), 1, "otras llaves no se tocan")
}

func TestConsolidate_SumaCeroEliminaTodo(t *testing.T) {
	ctx := context.Background()
	f := newFakeRecords(rec("1", keyA, "0"), rec("2", keyA, "0"))
	res, err := ledger.New(f).Consolidate(ctx, keyA, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsRemoved)
	assert.Empty(t, f.byKey(keyA))
}

func TestConsolidate_Idempotente(t *testing.T) {
	ctx := context.Background()
	f := newFakeRecords(rec("1", keyA, "2"), rec("2", keyA, "3"))
	l := ledger.New(f)

	_, err := l.Consolidate(ctx, keyA, time.Now())
	require.NoError(t, err)
	first := *f.byKey(keyA)[0]

	res, err := l.Consolidate(ctx, keyA, time.Now())
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.Zero(t, res.RowsRemoved)
	second := *f.byKey(keyA)[0]
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Quantity.Equal(second.Quantity))
}

func TestLockAvailable_AgrupaDuplicadosPorLlave(t *testing.T) {
	ctx := context.Background()
	f := newFakeRecords(rec("1", keyB, "3"), rec("2", keyB, "2"), rec("3", keyA, "1"),
		rec("4", entity.RecordKey{WarehouseID: "w2", BinID: "a", ProductID: "p"}, "9"))
	l := ledger.New(f)

	hs, err := l.LockAvailable(ctx, "p", "w1")
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, keyA, hs[0].Key())
	assert.Equal(t, keyB, hs[1].Key())
	assert.True(t, hs[1].Quantity().Equal(d("5")))
	assert.Equal(t, 1, hs[1].Merged())
}
