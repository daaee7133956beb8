package serving

import "sync/atomic"

// Cache owns the serving model reference. It starts Empty; a
// successful load publishes a Ready handle. Reading is one atomic
// pointer load, so readers never observe a partial handle and never
// contend with loads.
//
// Once Ready, the cache never goes back to Empty: failed reloads keep
// the stale handle in place.
type Cache struct {
	handle atomic.Pointer[Handle]
}

func NewCache() *Cache {
	return &Cache{}
}

// Get snapshots the current handle. ok is false while the cache is
// Empty. The snapshot stays valid for as long as the caller holds it,
// whatever reloads happen meanwhile.
func (c *Cache) Get() (*Handle, bool) {
	h := c.handle.Load()
	return h, h != nil
}

// Ready reports whether a model is published.
func (c *Cache) Ready() bool {
	return c.handle.Load() != nil
}

// Version reports the published version string, "" while Empty.
func (c *Cache) Version() string {
	if h, ok := c.Get(); ok {
		return h.Version()
	}
	return ""
}

// Publish swaps h in as the served model. h must not be nil; the cache
// never regresses to Empty.
func (c *Cache) Publish(h *Handle) {
	c.handle.Store(h)
}
