package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/bodega-ledger/internal/domain/entity"
	"github.com/jhoicas/bodega-ledger/internal/domain/repository"
	"github.com/jhoicas/bodega-ledger/pkg/logger"
)

var _ repository.ProductRepository = (*ProductCache)(nil)

const productKeyPrefix = "bodega:product:"

// Config conexión a Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisClient crea el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// ProductCache búsqueda de productos con lectura a través de Redis. El catálogo es de solo
// lectura para el motor, así que basta con expirar por TTL. Si Redis falla se consulta el
// repositorio directamente.
type ProductCache struct {
	inner repository.ProductRepository
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewProductCache envuelve el repositorio de productos. ttl <= 0 usa 5 minutos.
func NewProductCache(inner repository.ProductRepository, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProductCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

// GetByCode devuelve el producto desde cache o desde el repositorio. Los "no existe" no se cachean.
func (c *ProductCache) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	key := productKeyPrefix + code
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p entity.Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return &p, nil
		}
		c.log.Warn().Str("key", key).Msg("product cache: payload inválido")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("product cache: lectura fallida")
	}

	p, err := c.inner.GetByCode(ctx, code)
	if err != nil || p == nil {
		return p, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("product cache: escritura fallida")
		}
	}
	return p, nil
}
