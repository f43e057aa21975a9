package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/harness"
)

// NewRunCommand creates the run command: execute YAML scenarios.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run SCENARIO...",
		Short: "Run YAML scenario files against fresh engines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}

			type summary struct {
				Scenario string   `json:"scenario"`
				Pass     bool     `json:"pass"`
				Ops      int      `json:"ops"`
				Errors   []string `json:"errors,omitempty"`
			}
			var summaries []summary
			failed := 0

			for _, path := range args {
				s, err := harness.LoadFile(path)
				if err != nil {
					return WrapExitError(ExitCommandError, "load scenario", err)
				}
				f.VerboseLog("running %s (%d ops)", s.Name, len(s.Ops))

				result, err := s.Run()
				if err != nil {
					return WrapExitError(ExitCommandError, "run scenario", err)
				}
				if !result.Pass {
					failed++
				}
				summaries = append(summaries, summary{
					Scenario: s.Name,
					Pass:     result.Pass,
					Ops:      len(result.Trace),
					Errors:   result.Errors,
				})
			}

			if opts.Format == "json" {
				if err := f.Success(map[string]any{
					"scenarios": summaries,
					"failed":    failed,
				}); err != nil {
					return err
				}
			} else {
				for _, s := range summaries {
					status := "PASS"
					if !s.Pass {
						status = "FAIL"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d ops)\n", status, s.Scenario, s.Ops)
					for _, e := range s.Errors {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
					}
				}
			}

			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
			}
			return nil
		},
	}
}
