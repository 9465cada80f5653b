package field

// Cache is a type-erased, per-propagation scratch value owned by one call.
// The zero Cache holds nothing.
type Cache struct {
	ptr any
}

// NewCache stores v in a fresh cache. The cache holds a pointer to its own
// copy, so mutations made through [CacheValue] persist between lookups.
func NewCache[T any](v T) Cache {
	return Cache{ptr: &v}
}

// CacheValue returns the cached value if the cache holds a T.
func CacheValue[T any](c Cache) (*T, bool) {
	p, ok := c.ptr.(*T)
	return p, ok
}

func (c Cache) Empty() bool { return c.ptr == nil }
