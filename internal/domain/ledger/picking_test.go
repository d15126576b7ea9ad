package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bodega-ledger/internal/domain"
	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/ledger"
)

func binKey(bin string) entity.RecordKey {
	return entity.RecordKey{WarehouseID: "w1", BinID: bin, ProductID: "p"}
}

func TestPlanPicking_MayorPrimero(t *testing.T) {
	avail := []ledger.Available{
		{Key: binKey("A"), Quantity: d("5")},
		{Key: binKey("B"), Quantity: d("3")},
		{Key: binKey("C"), Quantity: d("10")},
	}
	takes, err := ledger.PlanPicking(avail, d("12"))
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, binKey("C"), takes[0].Key)
	assert.True(t, takes[0].Quantity.Equal(d("10")))
	// A y B cubren el resto; se usa la más pequeña.
	assert.Equal(t, binKey("B"), takes[1].Key)
	assert.True(t, takes[1].Quantity.Equal(d("2")))
}

// Mismo inventario A=5, B=3, C=10: la ubicación más pequeña que alcanza cierra el pedido,
// también en la primera toma.
func TestPlanPicking_CierreConLaMasPequenaQueAlcanza(t *testing.T) {
	type want struct {
		bin string
		qty string
	}
	tests := []struct {
		name string
		qty  string
		want []want
	}{
		{"primera toma cubre", "4", []want{{"A", "4"}}},
		{"exacta", "3", []want{{"B", "3"}}},
		{"solo la mayor cubre", "6", []want{{"C", "6"}}},
		{"resto pequeño", "11", []want{{"C", "10"}, {"B", "1"}}},
		{"todo", "18", []want{{"C", "10"}, {"A", "5"}, {"B", "3"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			avail := []ledger.Available{
				{Key: binKey("A"), Quantity: d("5")},
				{Key: binKey("B"), Quantity: d("3")},
				{Key: binKey("C"), Quantity: d("10")},
			}
			takes, err := ledger.PlanPicking(avail, d(tc.qty))
			require.NoError(t, err)
			require.Len(t, takes, len(tc.want))
			for i, w := range tc.want {
				assert.Equal(t, binKey(w.bin), takes[i].Key)
				assert.True(t, takes[i].Quantity.Equal(d(w.qty)), "toma %d: %s", i, takes[i].Quantity)
			}
		})
	}
}

func TestPlanPicking_EmpateDecidePorLlave(t *testing.T) {
	avail := []ledger.Available{
		{Key: binKey("Z"), Quantity: d("4")},
		{Key: binKey("M"), Quantity: d("4")},
	}
	takes, err := ledger.PlanPicking(avail, d("5"))
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, binKey("M"), takes[0].Key)
	assert.Equal(t, binKey("Z"), takes[1].Key)
	assert.True(t, takes[1].Quantity.Equal(d("1")))
}

func TestPlanPicking_UnaUbicacionCubreTodo(t *testing.T) {
	avail := []ledger.Available{
		{Key: binKey("A"), Quantity: d("20")},
		{Key: binKey("B"), Quantity: d("7")},
		{Key: binKey("C"), Quantity: d("2")},
	}
	takes, err := ledger.PlanPicking(avail, d("6"))
	require.NoError(t, err)
	require.Len(t, takes, 1)
	assert.Equal(t, binKey("B"), takes[0].Key)
}

func TestPlanPicking_Insuficiente(t *testing.T) {
	avail := []ledger.Available{{Key: binKey("A"), Quantity: d("5")}, {Key: binKey("B"), Quantity: d("3")}}
	takes, err := ledger.PlanPicking(avail, d("9"))
	assert.Nil(t, takes)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}

func TestPlanPicking_Decimales(t *testing.T) {
	avail := []ledger.Available{{Key: binKey("A"), Quantity: d("0.1")}, {Key: binKey("B"), Quantity: d("0.2")}}
	takes, err := ledger.PlanPicking(avail, d("0.3"))
	require.NoError(t, err)
	sum := takes[0].Quantity.Add(takes[1].Quantity)
	assert.True(t, sum.Equal(d("0.3")), "aritmética exacta, sin error de punto flotante")
}

func TestPlanPicking_CantidadNoPositiva(t *testing.T) {
	_, err := ledger.PlanPicking(nil, d("0"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
