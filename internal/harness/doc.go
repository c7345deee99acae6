// Package harness runs declarative conformance scenarios against the
// entity cache.
//
// A scenario is a YAML document naming a sequence of cache operations
// (writes, fragment writes, optimistic layers and their settlement,
// evictions) followed by assertions over the composed entity table and
// fragment reads. Scenarios double as executable documentation of the
// cache's observable contract: merge accumulation, layer precedence,
// stale-write rejection, eviction isolation.
//
// Golden-file support snapshots the final composed entity table as
// canonical JSON, compared with sebdah/goldie. Handles for optimistic
// layers come from a fixed generator seeded with the scenario's labels,
// so runs are byte-deterministic.
package harness
