package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/value"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Policies []string
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <payload-file> <entity-id>",
		Short: "Normalize a payload and read one entity back",
		Long: `Normalize a payload into the entity table, then read the named
entity back as a fully denormalized document. References are resolved
recursively; cyclic references resolve to reference markers instead of
recursing forever.

Examples:
  refcache read payload.json User:1
  refcache read --policies policies.cue payload.yaml Product:sku-9`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Policies, "policies", nil, "CUE policy files (later files win)")

	return cmd
}

func runRead(opts *ReadOptions, payloadPath, entityID string, cmd *cobra.Command) error {
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

	c, err := newCache(opts.Policies, payload)
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load policies", err)
	}

	doc := c.Read(value.Ref{ID: entityID})
	if doc == nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("entity not found: %s", entityID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("entity not found: %s", entityID))
	}

	if opts.Format == "json" {
		return formatter.Success(value.ToAny(doc))
	}

	data, err := value.MarshalCanonical(doc)
	if err != nil {
		return fmt.Errorf("rendering entity: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// FragmentOptions holds flags for the fragment command.
type FragmentOptions struct {
	*RootOptions
	Policies []string
}

// NewFragmentCommand creates the fragment command.
func NewFragmentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FragmentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fragment <payload-file> <entity-id> <field>...",
		Short: "Read a masked slice of one entity",
		Long: `Normalize a payload, then read only the named fields of one
entity. Fields the entity does not carry are omitted; the type
discriminator is always included.

Example:
  refcache fragment payload.json User:1 name email`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragment(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Policies, "policies", nil, "CUE policy files (later files win)")

	return cmd
}

func runFragment(opts *FragmentOptions, payloadPath, entityID string, fields []string, cmd *cobra.Command) error {
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

	c, err := newCache(opts.Policies, payload)
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load policies", err)
	}

	frag, err := c.ReadFragmentStrict(cache.EntityID(entityID), fields...)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(value.ToAny(frag))
	}

	data, err := value.MarshalCanonical(frag)
	if err != nil {
		return fmt.Errorf("rendering fragment: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
