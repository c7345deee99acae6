package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/value"
)

// RunWithGolden executes a scenario and compares the final composed
// entity table against a golden file in testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for the cache's externally
// observable table shape; a diff here means the normalization or merge
// contract changed.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshotJSON, err := SnapshotCanonical(result.Snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshotJSON)
	return nil
}

// SnapshotCanonical serializes an entity table as canonical JSON: one
// top-level object keyed by entity ID, records as objects, keys in
// canonical order. Byte-identical across runs for the same table.
func SnapshotCanonical(snapshot cache.EntityMap) ([]byte, error) {
	table := make(value.Object, len(snapshot))
	for id, rec := range snapshot {
		table[string(id)] = value.Object(rec)
	}
	return value.MarshalCanonical(table)
}
