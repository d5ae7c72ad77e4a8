package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/harness"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	File       string
	BestEffort bool
}

// UpdateOutput is the payload of the update command.
type UpdateOutput struct {
	Applied int           `json:"applied"`
	Skipped []SkippedItem `json:"skipped"`
}

// SkippedItem is one command skipped under best effort.
type SkippedItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update [sparql]",
		Short: "Apply a SPARQL update script",
		Long: `Apply a SPARQL update script to the store.

Commands run in order. By default the first failing command stops the
script; with --best-effort (or update.best_effort in the config) failing
commands are skipped and reported.

Only a SQLite store (--db) keeps the changes after the command exits.

Examples:
  quarry update --db quarry.db 'CREATE GRAPH <http://example.org/g>'
  quarry update --db quarry.db --file migrate.ru --best-effort`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the update from a file (- for stdin)")
	cmd.Flags().BoolVar(&opts.BestEffort, "best-effort", false, "skip failing commands instead of stopping")

	return cmd
}

func runUpdate(opts *UpdateOptions, args []string, cmd *cobra.Command) (err error) {
	text, err := readOperation(cmd, args, opts.File)
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd, func(cfg *config.Config) {
		if opts.BestEffort {
			cfg.Update.BestEffort = true
		}
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}()

	out := opts.formatter(cmd)
	report, err := s.engine.Update(cmd.Context(), text)
	if err != nil {
		out.VerboseLog("applied %d commands before the failure", report.Applied)
		return out.Fail("update failed", err)
	}

	result := &UpdateOutput{Applied: report.Applied, Skipped: []SkippedItem{}}
	for _, e := range report.Skipped {
		result.Skipped = append(result.Skipped, SkippedItem{Code: harness.ErrorCode(e), Message: e.Error()})
	}
	return out.Success(result)
}

func (u *UpdateOutput) renderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %d commands applied\n", passStyle.Render("✓"), u.Applied)
	for _, s := range u.Skipped {
		fmt.Fprintf(w, "%s skipped [%s]: %s\n", failStyle.Render("✗"), s.Code, s.Message)
	}
	return nil
}
