// Package export dumps a cache's composed entity table into a SQLite
// file for ad-hoc SQL inspection.
//
// The export is a tooling artifact, not durability: the engine never
// reads an export back at runtime, and the cache remains a pure
// in-memory structure rebuilt from scratch on initialization. Typical
// use is debugging a normalization result offline:
//
//	sqlite3 entities.db 'SELECT id, typename FROM entities'
//	sqlite3 entities.db "SELECT value FROM fields WHERE entity_id='User:1'"
//
// Schema: an entities table (id, typename, record as canonical JSON) and
// a fields table (entity_id, name, kind, value as canonical JSON), with
// kind tagging the field's variant (scalar, ref, list, object, null).
package export
