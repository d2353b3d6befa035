package cache

import (
	"log/slog"
	"unsafe"

	"github.com/coocood/freecache"
)

// Responses caches rendered HTTP payloads keyed by request path. The owner
// clears it whenever the data behind the payloads changes.
type Responses interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Clear()
}

type freecacheResponses struct {
	cache  *freecache.Cache
	ttl    int
	logger *slog.Logger
}

// NewResponses returns a freecache-backed cache of sizeMB megabytes with
// entries expiring after ttlSeconds. A non-positive size disables caching.
// freecache rejects entries above 1/1024 of its size, so a payload larger
// than sizeMB KB is never cached.
func NewResponses(sizeMB, ttlSeconds int, logger *slog.Logger) Responses {
	if logger == nil {
		logger = slog.Default()
	}
	if sizeMB <= 0 {
		logger.Info("response cache disabled")
		return noopResponses{}
	}
	ttl := max(ttlSeconds, 1)
	logger.Info("response cache initialized", "size_mb", sizeMB, "ttl_seconds", ttl)
	return &freecacheResponses{
		cache:  freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:    ttl,
		logger: logger,
	}
}

// unsafeStringToBytes converts s without allocating. freecache copies keys
// internally, so the result is only read.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *freecacheResponses) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *freecacheResponses) Set(key string, value []byte) {
	if err := c.cache.Set(unsafeStringToBytes(key), value, c.ttl); err != nil {
		c.logger.Debug("response not cached", "key", key, "size", len(value), "error", err)
	}
}

func (c *freecacheResponses) Clear() {
	c.cache.Clear()
}

type noopResponses struct{}

func (noopResponses) Get(string) ([]byte, bool) { return nil, false }
func (noopResponses) Set(string, []byte)        {}
func (noopResponses) Clear()                    {}
