package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/engine"
	"github.com/roach88/quarry/internal/rdf"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	File string
}

// QueryOutput is the payload of the query command.
type QueryOutput struct {
	ID        string              `json:"id"`
	Form      string              `json:"form"`
	Variables []string            `json:"variables,omitempty"`
	Rows      []map[string]string `json:"rows,omitempty"`
	Boolean   *bool               `json:"boolean,omitempty"`
	Triples   []string            `json:"triples,omitempty"`
	Partial   bool                `json:"partial,omitempty"`
	Duration  string              `json:"duration"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sparql]",
		Short: "Run a SELECT, ASK or CONSTRUCT query",
		Long: `Run a SPARQL query against the store.

The query comes from the argument, or from --file (use "-" for stdin).
SELECT prints a table of solutions, ASK prints true or false and
CONSTRUCT prints the triples of the built graph.

Examples:
  quarry query --data people.yaml 'SELECT ?n WHERE { ?p <http://xmlns.com/foaf/0.1/name> ?n }'
  quarry query --db quarry.db --file report.rq --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file (- for stdin)")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) (err error) {
	text, err := readOperation(cmd, args, opts.File)
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}()

	out := opts.formatter(cmd)
	res, err := s.engine.Query(cmd.Context(), text)
	if err != nil {
		return out.Fail("query failed", err)
	}
	for _, w := range res.Warnings {
		out.VerboseLog("warning: %s", w)
	}
	return out.Success(newQueryOutput(res))
}

func newQueryOutput(res *engine.Result) *QueryOutput {
	out := &QueryOutput{
		ID:       res.ID,
		Form:     res.Form.String(),
		Partial:  res.Partial,
		Duration: res.Duration.Round(time.Microsecond).String(),
		Warnings: res.Warnings,
	}
	switch res.Form {
	case algebra.FormSelect:
		out.Variables = res.Variables
		out.Rows = []map[string]string{}
		for _, sol := range res.Solutions.Solutions() {
			row := map[string]string{}
			for _, v := range res.Variables {
				if t, ok := sol.Get(v); ok {
					row[v] = rdf.FormatTerm(t)
				}
			}
			out.Rows = append(out.Rows, row)
		}
	case algebra.FormAsk:
		b := res.Boolean
		out.Boolean = &b
	case algebra.FormConstruct:
		out.Triples = []string{}
		for _, t := range res.Graph.Triples() {
			out.Triples = append(out.Triples, t.String())
		}
	}
	return out
}

func (q *QueryOutput) renderText(w io.Writer) error {
	switch {
	case q.Boolean != nil:
		fmt.Fprintln(w, *q.Boolean)
		return nil
	case q.Triples != nil:
		for _, t := range q.Triples {
			fmt.Fprintln(w, t)
		}
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d triples", len(q.Triples))))
		return nil
	}

	headers := make([]string, len(q.Variables))
	for i, v := range q.Variables {
		headers[i] = "?" + v
	}
	rows := make([][]string, len(q.Rows))
	for i, r := range q.Rows {
		cells := make([]string, len(q.Variables))
		for j, v := range q.Variables {
			cells[j] = r[v]
		}
		rows[i] = cells
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())

	summary := fmt.Sprintf("%d solutions in %s", len(q.Rows), q.Duration)
	if q.Partial {
		summary += " (partial: the query timed out)"
	}
	fmt.Fprintln(w, mutedStyle.Render(summary))
	return nil
}
