package cache

import (
	"log/slog"

	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

// Record is one entity's stored field map. Field values are scalars,
// lists, embedded objects, or value.Ref - never a nested entity inline.
type Record map[string]value.Value

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = value.Clone(v)
	}
	return out
}

// EntityMap is a flat table of entity records keyed by identifier.
type EntityMap map[EntityID]Record

// Store holds the authoritative entity table. It owns no business logic
// beyond per-field merge: the default is shallow union (incoming fields
// overwrite same-named fields, absent fields are preserved), intercepted
// by configured per-field or per-type merge functions.
//
// Every applied write records its stamp per entity. An incoming write
// stamped older than the entity's last applied stamp is discarded for
// that entity, which keeps out-of-order response processing from
// replacing fresh data with stale data.
type Store struct {
	entities EntityMap
	stamps   map[EntityID]int64
	policies *policy.Set
	logger   *slog.Logger
}

// NewStore creates an empty store bound to a policy set.
func NewStore(set *policy.Set, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entities: make(EntityMap),
		stamps:   make(map[EntityID]int64),
		policies: set,
		logger:   logger,
	}
}

// Write merges an incoming entity map into the base table at the given
// stamp. Per entity: a record is created on first sight, otherwise the
// incoming fields are merged over the existing record. Entities whose
// last applied stamp is newer than this write's stamp are skipped.
func (s *Store) Write(incoming EntityMap, stamp int64) {
	for id, fields := range incoming {
		if last, ok := s.stamps[id]; ok && stamp < last {
			s.logger.Debug("discarding stale write",
				"entity", string(id), "stamp", stamp, "applied", last)
			continue
		}
		s.entities[id] = s.mergeRecord(id, s.entities[id], fields)
		s.stamps[id] = stamp
	}
}

// mergeRecord produces a new record that is the union of existing and
// incoming fields. Incoming values win on name conflicts unless a merge
// function is configured for the field or type, in which case that
// function decides the stored value.
func (s *Store) mergeRecord(id EntityID, existing, incoming Record) Record {
	out := make(Record, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}

	typename := recordTypename(existing, incoming, s.policies.TypenameField())
	p, hasPolicy := s.policies.Lookup(typename)

	for k, v := range incoming {
		merge := policy.MergeFunc(nil)
		if hasPolicy {
			if fp, ok := p.FieldFor(k); ok && fp.Merge != nil {
				merge = fp.Merge
			} else if p.Merge != nil {
				merge = p.Merge
			}
		}
		if merge != nil {
			out[k] = merge(out[k], v)
			continue
		}
		out[k] = v
	}
	return out
}

// recordTypename pulls the discriminator out of whichever record carries
// it. Incoming wins, matching field merge semantics.
func recordTypename(existing, incoming Record, field string) string {
	if tn, ok := incoming[field].(value.String); ok {
		return string(tn)
	}
	if tn, ok := existing[field].(value.String); ok {
		return string(tn)
	}
	return ""
}

// Read returns the record for id, if present. The returned record is the
// stored one; callers that mutate must clone.
func (s *Store) Read(id EntityID) (Record, bool) {
	rec, ok := s.entities[id]
	return rec, ok
}

// Evict removes one field (when named) or the whole record. Reports
// whether the record existed. Evicting the record also drops its stamp,
// so a later re-write starts fresh.
func (s *Store) Evict(id EntityID, field string) bool {
	rec, ok := s.entities[id]
	if !ok {
		return false
	}
	if field == "" {
		delete(s.entities, id)
		delete(s.stamps, id)
		return true
	}
	delete(rec, field)
	return true
}

// Clear empties the store.
func (s *Store) Clear() {
	s.entities = make(EntityMap)
	s.stamps = make(map[EntityID]int64)
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Snapshot returns a shallow copy of the entity table: the map is fresh
// but records are shared. Overlay composition replaces records it
// touches, never mutates them, so sharing is safe.
func (s *Store) Snapshot() EntityMap {
	view := make(EntityMap, len(s.entities))
	for id, rec := range s.entities {
		view[id] = rec
	}
	return view
}
