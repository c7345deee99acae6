package cache

import (
	"log/slog"
	"sync"

	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// Cache is one normalized entity cache instance: the base store, the
// ordered optimistic layer stack, the policy set, the write-stamp clock,
// and the layer handle generator. All entity state an application shares
// lives here; no sub-component retains its own copy beyond a single call.
//
// Thread-safety model:
//   - All public methods are safe from any goroutine; a single mutex
//     serializes mutations and view composition, which matches the
//     one-logical-thread ordering the engine's semantics assume.
//   - Writes apply in the order their callers run, not the order the
//     underlying requests were issued; stale ordering is handled by
//     per-entity stamps, not by locking.
type Cache struct {
	mu       sync.Mutex
	store    *Store
	layers   layerStack
	policies *policy.Set
	clock    *Clock
	handles  HandleGenerator
	logger   *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithPolicies supplies the type-policy set. Without it an empty set with
// default identity resolution is used.
func WithPolicies(set *policy.Set) Option {
	return func(c *Cache) {
		if set != nil {
			c.policies = set
		}
	}
}

// WithHandleGenerator injects the optimistic-layer handle generator.
// Tests use NewFixedGenerator for deterministic handles.
func WithHandleGenerator(g HandleGenerator) Option {
	return func(c *Cache) {
		if g != nil {
			c.handles = g
		}
	}
}

// WithLogger injects a structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty cache. The instance owns its clock and handle
// generator; two instances in one process never share state.
func New(opts ...Option) *Cache {
	c := &Cache{
		policies: policy.NewSet(),
		clock:    NewClock(),
		handles:  UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = NewStore(c.policies, c.logger)
	return c
}

// AddPolicies merges additional type policies into the cache's set.
// Supports late registration after initialization.
func (c *Cache) AddPolicies(set *policy.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies.Merge(set)
}

// Write normalizes a response payload and merges the extracted entities
// into the base store at a fresh stamp. Returns the normalized result
// shape (entities replaced by refs) for callers that re-read it later.
func (c *Cache) Write(data value.Value) value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data, c.clock.Next())
}

// WriteAt is Write with a caller-supplied stamp, for collaborators that
// stamp at request-issue time. Entities that already carry a newer stamp
// discard this write; see Store.Write.
func (c *Cache) WriteAt(data value.Value, stamp int64) value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data, stamp)
}

func (c *Cache) writeLocked(data value.Value, stamp int64) value.Value {
	norm := Normalize(data, c.policies)
	c.store.Write(norm.Entities, stamp)
	c.logger.Debug("write applied",
		"entities", len(norm.Entities), "stamp", stamp)
	return norm.Result
}

// Read denormalizes a previously normalized result shape against the
// current composed view (base store plus active optimistic layers).
func (c *Cache) Read(root value.Value) value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Denormalize(root, c.composeLocked(), c.policies)
}

// ReadFragment looks up one entity in the composed view and denormalizes
// it. When fields are declared, the result is masked to those fields plus
// the type discriminator. Returns ok=false on a cache miss.
func (c *Cache) ReadFragment(id EntityID, fields ...string) (value.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.composeLocked()
	rec, ok := view[id]
	if !ok {
		return nil, false
	}
	if len(fields) > 0 {
		return MaskFields(rec, view, fields, c.policies), true
	}
	obj, _ := Denormalize(value.Ref{ID: string(id)}, view, c.policies).(value.Object)
	return obj, true
}

// ReadFragmentStrict is ReadFragment for callers that opted into strict
// mode: a cache miss returns an explicit EntityNotFound error instead of
// an absent result.
func (c *Cache) ReadFragmentStrict(id EntityID, fields ...string) (value.Object, error) {
	obj, ok := c.ReadFragment(id, fields...)
	if !ok {
		return nil, NewEntityNotFoundError(id)
	}
	return obj, nil
}

// WriteFragment merges arbitrary fields directly into one entity's
// record, bypassing full-payload normalization. Nested entities inside
// the fields are still extracted and written.
func (c *Cache) WriteFragment(id EntityID, fields value.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := c.clock.Next()
	norm := Normalize(fields, c.policies)
	entities := norm.Entities
	if entities == nil {
		entities = make(EntityMap)
	}
	// The root field map lands on the target entity regardless of its own
	// resolvability; a root that normalized to a ref of the same entity
	// has already been folded in.
	if obj, ok := norm.Result.(value.Object); ok {
		existing := entities[id]
		if existing == nil {
			existing = make(Record, len(obj))
		}
		for k, v := range obj {
			existing[k] = v
		}
		entities[id] = existing
	}
	c.store.Write(entities, stamp)
}

// Evict removes one field of an entity, or the whole record when no
// field is given. Reports whether the record existed. Optimistic layers
// are untouched: a layered entity remains visible until its layer is
// removed.
func (c *Cache) Evict(id EntityID, field ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := ""
	if len(field) > 0 {
		name = field[0]
	}
	return c.store.Evict(id, name)
}

// Clear empties the base store and drops all optimistic layers.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.layers.clear()
}

// AddOptimisticLayer normalizes a speculative payload into a fresh layer
// above the store and returns its handle. The base store is not written.
func (c *Cache) AddOptimisticLayer(data value.Value) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	handle := c.handles.Generate()
	norm := Normalize(data, c.policies)
	c.layers.add(handle, norm.Entities)
	c.logger.Debug("optimistic layer added",
		"handle", handle, "entities", len(norm.Entities))
	return handle
}

// RemoveOptimisticLayer drops the layer with the given handle, restoring
// the view beneath it. Reports whether the layer existed. Called in both
// the success and failure continuations of the bracketed operation, so
// speculative data never leaks permanently.
func (c *Cache) RemoveOptimisticLayer(handle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.layers.remove(handle)
	if removed {
		c.logger.Debug("optimistic layer removed", "handle", handle)
	}
	return removed
}

// LayerCount returns the number of active optimistic layers.
func (c *Cache) LayerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers.len()
}

// ToReference exposes identity resolution to collaborators that need a
// reference without performing a write. Returns ok=false for objects
// without a resolvable identity.
func (c *Cache) ToReference(obj value.Object) (value.Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ident := ResolveIdentity(obj, c.policies)
	if ident.Kind == IdentityEmbedded {
		return value.Ref{}, false
	}
	return value.Ref{ID: string(ident.ID)}, true
}

// Extract returns a deep copy of the composed entity table. Used by
// snapshots, golden tests, and the export tooling; mutating the copy
// never affects the cache.
func (c *Cache) Extract() EntityMap {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := c.composeLocked()
	out := make(EntityMap, len(view))
	for id, rec := range view {
		out[id] = rec.Clone()
	}
	return out
}

// GC removes every base-store record not reachable from the given roots
// over Ref edges. Returns the evicted identifiers. Layers are not
// collected; they are short-lived by construction.
func (c *Cache) GC(roots ...value.Ref) []EntityID {
	c.mu.Lock()
	defer c.mu.Unlock()

	reachable := make(map[EntityID]bool)
	for _, root := range roots {
		c.markReachable(EntityID(root.ID), reachable)
	}

	var evicted []EntityID
	for id := range c.store.entities {
		if !reachable[id] {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		c.store.Evict(id, "")
	}
	return evicted
}

func (c *Cache) markReachable(id EntityID, seen map[EntityID]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	rec, ok := c.store.Read(id)
	if !ok {
		return
	}
	for _, v := range rec {
		markValueRefs(v, func(target EntityID) {
			c.markReachable(target, seen)
		})
	}
}

// markValueRefs walks a stored value and invokes visit for every Ref.
func markValueRefs(v value.Value, visit func(EntityID)) {
	switch val := v.(type) {
	case value.Ref:
		visit(EntityID(val.ID))
	case value.List:
		for _, elem := range val {
			markValueRefs(elem, visit)
		}
	case value.Object:
		for _, elem := range val {
			markValueRefs(elem, visit)
		}
	}
}

func (c *Cache) composeLocked() EntityMap {
	return c.layers.compose(c.store.Snapshot())
}
