package policyfile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/refcache/refcache/internal/policy"
)

// LoadFile compiles a single CUE policy document from disk.
func LoadFile(path string) (*policy.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes compiles a CUE policy document held in memory. filename is
// used for error positions only.
func LoadBytes(filename string, data []byte) (*policy.Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// LoadFiles compiles several policy documents and merges them into one
// set in argument order: later files win on typename conflicts, matching
// Set.Merge semantics.
func LoadFiles(paths ...string) (*policy.Set, error) {
	merged := policy.NewSet()
	for _, path := range paths {
		set, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		merged.Merge(set)
	}
	return merged, nil
}
