// Package policyfile compiles declarative type-policy documents written
// in CUE into policy.Set values.
//
// A policy document describes identity derivation and field metadata per
// typename:
//
//	typenameField: "__typename"
//	policies: {
//		Product: {
//			keyFields: ["sku", "warehouse"]
//		}
//		User: {
//			keyFields: ["id"]
//			fields: posts: keyArgs: ["sort"]
//		}
//	}
//
// Only declarative configuration is expressible in a document; custom
// identity, merge, and read functions are registered through the Go API.
package policyfile

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/refcache/refcache/internal/policy"
)

// CompileError reports a policy document that fails to compile, with the
// CUE source position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses a CUE value holding a policy document into a policy.Set.
//
// Expected shape: an optional string field "typenameField" and a struct
// field "policies" mapping typename to { keyFields?, fields? }.
func Compile(v cue.Value) (*policy.Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var opts []policy.Option
	tnVal := v.LookupPath(cue.ParsePath("typenameField"))
	if tnVal.Exists() {
		tn, err := tnVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, policy.WithTypenameField(tn))
	}
	set := policy.NewSet(opts...)

	policiesVal := v.LookupPath(cue.ParsePath("policies"))
	if !policiesVal.Exists() {
		return nil, &CompileError{
			Field:   "policies",
			Message: "policies is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := policiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typename := iter.Selector().Unquoted()
		tp, err := compileTypePolicy(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", typename, err)
		}
		set.Add(typename, tp)
	}

	return set, nil
}

func compileTypePolicy(v cue.Value) (policy.TypePolicy, error) {
	tp := policy.TypePolicy{}

	keyVal := v.LookupPath(cue.ParsePath("keyFields"))
	if keyVal.Exists() {
		fields, err := stringList(keyVal)
		if err != nil {
			return tp, err
		}
		if len(fields) == 0 {
			return tp, &CompileError{
				Field:   "keyFields",
				Message: "keyFields must not be empty when present",
				Pos:     keyVal.Pos(),
			}
		}
		tp.KeyFields = fields
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		iter, err := fieldsVal.Fields()
		if err != nil {
			return tp, formatCUEError(err)
		}
		tp.Fields = make(map[string]policy.FieldPolicy)
		for iter.Next() {
			name := iter.Selector().Unquoted()
			fp := policy.FieldPolicy{}
			argsVal := iter.Value().LookupPath(cue.ParsePath("keyArgs"))
			if argsVal.Exists() {
				args, err := stringList(argsVal)
				if err != nil {
					return tp, fmt.Errorf("field %q: %w", name, err)
				}
				fp.KeyArgs = args
			}
			tp.Fields[name] = fp
		}
	}

	return tp, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError unwraps a CUE error list and returns the first error
// with its source position attached.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
