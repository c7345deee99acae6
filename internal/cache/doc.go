// Package cache implements the normalized entity cache engine.
//
// A response payload is normalized into a flat table of entity records
// keyed by a deterministic identifier, with nested entities replaced by
// references. Reads recompose nested views from the table, layering any
// active optimistic overlays above the base store, with path-scoped cycle
// protection. A field masker restricts a denormalized entity to a declared
// field set.
//
// Key design constraints:
//   - One record per entity identifier; repeated writes merge field-wise
//   - Records never contain a nested entity inline, only value.Ref
//   - Optimistic layers never touch the base store; they compose at read
//     time and remove without residue
//   - Writes carry monotonic stamps; a write older than the entity's last
//     applied stamp is discarded for that entity
//   - All ordering uses logical sequence numbers, never wall-clock time
//
// The cache instance owns all mutable state (store, layers, clock, handle
// generator); nothing in this package is process-global.
package cache
