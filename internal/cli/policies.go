package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refcache/refcache/internal/policyfile"
)

// VetResult holds the outcome of vetting one policy file.
type VetResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Types  []string `json:"types,omitempty"`
	Errors []string `json:"errors,omitempty"`
	Line   int      `json:"line,omitempty"`
}

// NewPoliciesCommand creates the policies command group.
func NewPoliciesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect and vet policy files",
	}
	cmd.AddCommand(newPoliciesVetCommand(rootOpts))
	return cmd
}

func newPoliciesVetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet <policy-file>...",
		Short: "Vet CUE policy files",
		Long: `Compile CUE policy files and report what they declare.

Each file is compiled independently. A file is rejected when a type
policy declares no key fields, when keyFields is not a list of strings,
or when the document does not evaluate.

Exit codes:
  0 - All files valid
  1 - One or more files rejected
  2 - Command error (unreadable file, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoliciesVet(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runPoliciesVet(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	results := make([]VetResult, 0, len(paths))
	rejected := 0
	for _, path := range paths {
		result := vetPolicyFile(path)
		if !result.Valid {
			rejected++
		}
		results = append(results, result)
	}

	if opts.Format == "json" {
		if rejected > 0 {
			_ = formatter.Error(ErrCodePolicy,
				fmt.Sprintf("%d policy file(s) rejected", rejected), results)
			return NewExitError(ExitFailure, fmt.Sprintf("%d policy file(s) rejected", rejected))
		}
		return formatter.Success(results)
	}

	w := cmd.OutOrStdout()
	for _, result := range results {
		if result.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", result.File, describeTypes(result.Types))
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", result.File)
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	if rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d policy file(s) rejected", rejected))
	}
	return nil
}

func vetPolicyFile(path string) VetResult {
	result := VetResult{File: path}

	set, err := policyfile.LoadFile(path)
	if err != nil {
		var compileErr *policyfile.CompileError
		if errors.As(err, &compileErr) {
			result.Errors = append(result.Errors, compileErr.Error())
			if compileErr.Pos.IsValid() {
				result.Line = compileErr.Pos.Line()
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}

	result.Valid = true
	result.Types = set.Types()
	return result
}

func describeTypes(types []string) string {
	if len(types) == 0 {
		return "no type policies"
	}
	return fmt.Sprintf("%d type(s): %s", len(types), strings.Join(types, ", "))
}
