package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/engine"
	"github.com/roach88/quarry/internal/store"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	File string
}

// ExplainOutput is the payload of the explain command.
type ExplainOutput struct {
	Form      string   `json:"form"`
	Optimiser string   `json:"optimiser"`
	Before    string   `json:"before"`
	After     string   `json:"after"`
	Changed   bool     `json:"changed"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [sparql]",
		Short: "Show the algebra of a query before and after optimisation",
		Long: `Compile a query to its algebra and show it before and after the
optimiser ran. The query is not evaluated and no data is loaded.

Example:
  quarry explain 'SELECT ?n WHERE { ?p <http://example.org/name> ?n FILTER(?p = <http://example.org/a>) }'`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file (- for stdin)")

	return cmd
}

func runExplain(opts *ExplainOptions, args []string, cmd *cobra.Command) error {
	text, err := readOperation(cmd, args, opts.File)
	if err != nil {
		return err
	}
	eng, err := offlineEngine(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	out := opts.formatter(cmd)
	plan, err := eng.Explain(text)
	if err != nil {
		return out.Fail("explain failed", err)
	}
	before, after := plan.Before.String(), plan.After.String()
	return out.Success(&ExplainOutput{
		Form:      plan.Query.Form.String(),
		Optimiser: plan.Optimiser,
		Before:    before,
		After:     after,
		Changed:   before != after,
		Warnings:  plan.Warnings,
	})
}

func (e *ExplainOutput) renderText(w io.Writer) error {
	fmt.Fprintln(w, headerStyle.Render("before"))
	fmt.Fprintln(w, e.Before)
	fmt.Fprintln(w, headerStyle.Render("after "+e.Optimiser))
	if e.Changed {
		fmt.Fprintln(w, e.After)
	} else {
		fmt.Fprintln(w, mutedStyle.Render("(unchanged)"))
	}
	for _, warning := range e.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

// offlineEngine builds an engine over an empty memory store, for commands
// that only compile.
func offlineEngine(opts *RootOptions, cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	eng, err := engine.New(store.NewMemory(),
		engine.WithConfig(cfg),
		engine.WithLogger(newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return eng, nil
}
