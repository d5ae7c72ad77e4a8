package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/rdf"
)

// GraphsOutput is the payload of the graphs command.
type GraphsOutput struct {
	Graphs []GraphInfo `json:"graphs"`
}

// GraphInfo describes one graph of the store.
type GraphInfo struct {
	Name    string `json:"name"`
	Triples int    `json:"triples"`

	// Fingerprint is the content hash of the graph's triples.
	Fingerprint string `json:"fingerprint"`
}

// NewGraphsCommand creates the graphs command.
func NewGraphsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graphs",
		Short: "List the graphs of the store",
		Long: `List the default graph and every named graph with its triple count and
content fingerprint.

Example:
  quarry graphs --db quarry.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphs(rootOpts, cmd)
		},
	}
}

func runGraphs(opts *RootOptions, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}()

	out := opts.formatter(cmd)
	names, err := s.engine.Graphs(ctx)
	if err != nil {
		return out.Fail("listing graphs failed", err)
	}
	result := &GraphsOutput{}
	for _, name := range append([]rdf.IRI{rdf.DefaultGraph}, names...) {
		g, err := s.store.LoadGraph(ctx, name)
		if err != nil {
			return out.Fail("loading graph failed", err)
		}
		label := "default"
		if name != rdf.DefaultGraph {
			label = name.String()
		}
		result.Graphs = append(result.Graphs, GraphInfo{
			Name:        label,
			Triples:     g.Len(),
			Fingerprint: rdf.Fingerprint(g),
		})
	}
	return out.Success(result)
}

func (g *GraphsOutput) renderText(w io.Writer) error {
	for _, info := range g.Graphs {
		fmt.Fprintf(w, "%s\t%d\t%s\n", info.Name, info.Triples, mutedStyle.Render(info.Fingerprint[:12]))
	}
	return nil
}
