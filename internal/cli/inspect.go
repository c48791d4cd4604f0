package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/denorm/internal/schema"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Root string
}

// InspectResult is the JSON payload of the inspect command.
type InspectResult struct {
	Entities []string `json:"entities"`
	Tree     string   `json:"tree"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <schema-file>",
		Short: "Print a schema document as a tree",
		Long: `Compile a schema document and print the node a run would use.

Without a root (from the document or --root) every entity is printed.
Entities already printed appear as "-> key".

Example:
  denorm inspect library.yaml
  denorm inspect library.cue --root '{featured: [books]}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "root reference overriding the document root")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	node, catalog, err := LoadSchema(path, opts.Root)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	var tree string
	if node != nil {
		tree = schema.Describe(node)
	} else {
		var b strings.Builder
		for _, key := range catalog.Keys() {
			e, _ := catalog.Entity(key)
			b.WriteString(schema.Describe(e))
		}
		tree = b.String()
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(InspectResult{Entities: catalog.Keys(), Tree: tree})
	}
	return formatter.Success(strings.TrimSuffix(tree, "\n"))
}
