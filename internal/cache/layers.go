package cache

// Layer is one optimistic overlay: a handle plus the entity map produced
// by normalizing the speculative payload. Layers never touch the base
// store; they are composed above it at read time and removed without
// residue when the bracketed operation settles.
type Layer struct {
	handle   string
	entities EntityMap
}

// Handle returns the layer's process-unique handle.
func (l *Layer) Handle() string {
	return l.handle
}

// layerStack is the ordered list of active overlays, oldest first.
// Later-added layers win on field conflicts during composition, so when
// two concurrent speculative writes touch the same entity field, the most
// recently added layer is what reads observe. That precedence is defined
// behavior, not an accident of implementation.
type layerStack struct {
	layers []*Layer
}

// add appends a new layer with the given handle and entities.
func (s *layerStack) add(handle string, entities EntityMap) *Layer {
	layer := &Layer{handle: handle, entities: entities}
	s.layers = append(s.layers, layer)
	return layer
}

// remove filters out the layer with the given handle. Reports whether a
// layer was removed.
func (s *layerStack) remove(handle string) bool {
	for i, layer := range s.layers {
		if layer.handle == handle {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// clear drops every layer.
func (s *layerStack) clear() {
	s.layers = nil
}

// len returns the number of active layers.
func (s *layerStack) len() int {
	return len(s.layers)
}

// compose builds the read-time view: the base snapshot with each layer's
// entities merged in, oldest to newest, under the same shallow-union rule
// the store uses. Records touched by a layer are replaced with fresh
// merged copies, so neither the base store nor any layer is mutated.
//
// The view is recomputed on every read rather than cached incrementally -
// correctness over performance, acceptable at small-to-medium entity
// counts. Incremental composition is the tuning point if that assumption
// breaks.
func (s *layerStack) compose(base EntityMap) EntityMap {
	view := base
	for _, layer := range s.layers {
		for id, fields := range layer.entities {
			merged := make(Record, len(view[id])+len(fields))
			for k, v := range view[id] {
				merged[k] = v
			}
			for k, v := range fields {
				merged[k] = v
			}
			view[id] = merged
		}
	}
	return view
}
