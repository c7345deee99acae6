package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/value"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Policies []string
}

// NormalizeOutput is the JSON payload for a normalize run.
type NormalizeOutput struct {
	Entities map[string]any `json:"entities"`
	Result   any            `json:"result"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <payload-file>",
		Short: "Normalize a payload into an entity table",
		Long: `Normalize a JSON or YAML payload into a flat entity table.

Every identifiable object in the payload becomes an entity row; the
remaining shape is printed with references in place of the extracted
entities. Pass "-" to read the payload from stdin.

Examples:
  refcache normalize payload.json
  refcache normalize --policies policies.cue payload.yaml
  cat payload.json | refcache normalize - --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Policies, "policies", nil, "CUE policy files (later files win)")

	return cmd
}

func runNormalize(opts *NormalizeOptions, payloadPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	payload, err := LoadPayload(payloadPath, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load payload", err)
	}

	c, err := newCache(opts.Policies, nil)
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load policies", err)
	}
	result := c.Write(payload)
	table := c.Extract()

	formatter.VerboseLog("normalized %d entities", len(table))

	if opts.Format == "json" {
		return formatter.Success(normalizeOutput(table, result))
	}

	doc, err := tableCanonical(table)
	if err != nil {
		return fmt.Errorf("rendering entity table: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), doc)
	if result != nil {
		shape, err := value.MarshalCanonical(result)
		if err != nil {
			return fmt.Errorf("rendering result shape: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(shape))
	}
	return nil
}

func normalizeOutput(table cache.EntityMap, result value.Value) NormalizeOutput {
	entities := make(map[string]any, len(table))
	for id, rec := range table {
		fields := make(map[string]any, len(rec))
		for name, v := range rec {
			fields[name] = value.ToAny(v)
		}
		entities[string(id)] = fields
	}
	out := NormalizeOutput{Entities: entities}
	if result != nil {
		out.Result = value.ToAny(result)
	}
	return out
}
