package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/algebra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	File   string
	Update bool
}

// ValidateOutput is the payload of the validate command.
type ValidateOutput struct {
	Kind     string   `json:"kind"` // "query" or "update"
	Form     string   `json:"form,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [sparql]",
		Short: "Check query or update syntax without running it",
		Long: `Parse a query (or, with --update, an update script) and report
syntax errors and algebra warnings such as aggregates that project
ungrouped variables.

Exit codes:
  0 - Valid
  1 - Syntax error
  2 - Command error

Examples:
  quarry validate 'SELECT ?s WHERE { ?s ?p ?o }'
  quarry validate --update --file migrate.ru`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the text from a file (- for stdin)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "validate an update script instead of a query")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	text, err := readOperation(cmd, args, opts.File)
	if err != nil {
		return err
	}
	eng, err := offlineEngine(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	if opts.Update {
		cmds, err := eng.ParseUpdate(text)
		if err != nil {
			return out.Fail("invalid update", err)
		}
		result := &ValidateOutput{Kind: "update", Commands: []string{}}
		for _, c := range cmds {
			result.Commands = append(result.Commands, c.Name())
		}
		return out.Success(result)
	}

	q, err := eng.Parse(text)
	if err != nil {
		return out.Fail("invalid query", err)
	}
	return out.Success(&ValidateOutput{
		Kind:     "query",
		Form:     q.Form.String(),
		Warnings: algebra.Validate(q).Warnings,
	})
}

func (v *ValidateOutput) renderText(w io.Writer) error {
	if v.Kind == "update" {
		fmt.Fprintf(w, "%s valid update: %d commands\n", passStyle.Render("✓"), len(v.Commands))
		for _, c := range v.Commands {
			fmt.Fprintf(w, "  %s\n", c)
		}
		return nil
	}
	fmt.Fprintf(w, "%s valid %s query\n", passStyle.Render("✓"), v.Form)
	for _, warning := range v.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
