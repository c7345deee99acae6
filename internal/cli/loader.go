package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/policyfile"
	"github.com/refcache/refcache/internal/value"
)

// LoadPayload reads a JSON or YAML document and converts it into a
// cache value. The path "-" reads from the given stdin reader.
func LoadPayload(path string, stdin io.Reader) (value.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing payload %s: %w", path, err)
		}
		return value.FromAny(doc)
	default:
		v, err := value.FromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing payload %s: %w", path, err)
		}
		return v, nil
	}
}

// loadPolicySet compiles the given CUE policy files into one set.
// Returns a default set when no paths are given.
func loadPolicySet(policyPaths []string) (*policy.Set, error) {
	if len(policyPaths) == 0 {
		return policy.NewSet(), nil
	}
	return policyfile.LoadFiles(policyPaths...)
}

// newCache builds a cache configured from the given policy files. A
// non-nil payload is written into it before returning. Used by the
// read-style commands that inspect a single payload.
func newCache(policyPaths []string, payload value.Value) (*cache.Cache, error) {
	set, err := loadPolicySet(policyPaths)
	if err != nil {
		return nil, err
	}

	c := cache.New(cache.WithPolicies(set))
	if payload != nil {
		c.Write(payload)
	}
	return c, nil
}

// tableCanonical renders an entity table as one canonical JSON document
// keyed by entity id.
func tableCanonical(table cache.EntityMap) (string, error) {
	obj := make(value.Object, len(table))
	for id, rec := range table {
		fields := make(value.Object, len(rec))
		for name, v := range rec {
			fields[name] = v
		}
		obj[string(id)] = fields
	}
	data, err := value.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
