// Package pagecache keeps rendered customer pages until a product change
// invalidates them.
package pagecache

import (
	"sync"

	"github.com/asaskevich/EventBus"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const DefaultSize = 64

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digistore_page_cache_lookups_total",
		Help: "Page cache lookups by path and result",
	},
	[]string{"path", "result"},
)

// Page is a rendered response body
type Page struct {
	ContentType string
	Body        []byte
}

type Cache struct {
	mu    sync.Mutex
	gen   uint64
	pages *lru.Cache[string, Page]
}

func New(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	pages, err := lru.New[string, Page](size)
	if err != nil {
		panic(err)
	}
	return &Cache{pages: pages}
}

func (c *Cache) Get(path string) (Page, bool) {
	page, ok := c.pages.Get(path)
	result := "miss"
	if ok {
		result = "hit"
	}
	lookups.WithLabelValues(path, result).Inc()
	return page, ok
}

func (c *Cache) Set(path string, page Page) {
	c.pages.Add(path, page)
}

// Generation changes on every Invalidate. Read it before loading the data of
// a page and pass it to SetIfCurrent.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfCurrent stores page only if no invalidation happened since gen was
// read, so a render that raced a mutation is not cached.
func (c *Cache) SetIfCurrent(path string, page Page, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.pages.Add(path, page)
	return true
}

// Invalidate marks the given paths stale; the next request renders them again.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, p := range paths {
		c.pages.Remove(p)
	}
}

func (c *Cache) Len() int {
	return c.pages.Len()
}

// InvalidateOn drops paths whenever topic is published on bus.
// Handlers receive the id of the changed product.
func (c *Cache) InvalidateOn(bus EventBus.Bus, topic string, paths ...string) error {
	return bus.Subscribe(topic, func(id int64) {
		c.Invalidate(paths...)
		zap.L().Debug("page cache invalidated",
			zap.String("topic", topic),
			zap.Int64("product_id", id),
			zap.Strings("paths", paths))
	})
}
