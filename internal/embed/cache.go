package embed

import (
	"log/slog"
	"sync"
)

// Cache holds the currently configured embedder and re-instantiates it
// only when the configuration tuple changes. Client construction sets up
// connection pools, so repeated identical configuration must not pay
// that cost on every call.
type Cache struct {
	mu      sync.Mutex
	factory func(Config) (Embedder, error)

	current Embedder
	config  Config

	queryCacheSize int
}

// NewCache creates an embedder cache using the HTTP embedder factory.
func NewCache(queryCacheSize int) *Cache {
	return &Cache{
		factory: func(cfg Config) (Embedder, error) {
			return NewHTTPEmbedder(cfg)
		},
		queryCacheSize: queryCacheSize,
	}
}

// NewCacheWithFactory creates an embedder cache with a custom factory.
// Used by tests to count client constructions.
func NewCacheWithFactory(factory func(Config) (Embedder, error), queryCacheSize int) *Cache {
	return &Cache{
		factory:        factory,
		queryCacheSize: queryCacheSize,
	}
}

// Ensure returns an embedder for the given configuration, reusing the
// cached one when the configuration tuple is unchanged.
func (c *Cache) Ensure(cfg Config) (Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.config == cfg {
		return c.current, nil
	}

	slog.Debug("initializing embedder",
		slog.String("model", cfg.Model),
		slog.String("endpoint", cfg.Endpoint))

	if c.current != nil {
		_ = c.current.Close()
		c.current = nil
	}

	inner, err := c.factory(cfg)
	if err != nil {
		return nil, err
	}

	c.current = NewCachedEmbedder(inner, c.queryCacheSize)
	c.config = cfg
	return c.current, nil
}

// Close releases the cached embedder, if any.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	c.config = Config{}
	return err
}
