package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

type stubProducts struct {
	calls int
	p     *entity.Product
}

func (s *stubProducts) GetByCode(_ context.Context, code string) (*entity.Product, error) {
	s.calls++
	if s.p != nil && (s.p.Barcode == code || s.p.SKU == code) {
		return s.p, nil
	}
	return nil, nil
}

// Redis inalcanzable: el cache degrada a consulta directa sin devolver error.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
}

func TestProductCache_SinRedisConsultaElRepositorio(t *testing.T) {
	inner := &stubProducts{p: &entity.Product{ID: "p1", SKU: "SKU-1", Barcode: "770"}}
	rdb := unreachable()
	defer rdb.Close()
	c := cache.NewProductCache(inner, rdb, time.Minute, logger.Nop())

	p, err := c.GetByCode(context.Background(), "770")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)

	p, err = c.GetByCode(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 2, inner.calls)
}

func TestNewRedisClient_FallaSiNoConecta(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := cache.NewRedisClient(ctx, cache.Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
