package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/validate"
)

// NewValidateCommand creates the validate command: check a diagram
// JSON file and report every finding.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a diagram JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read diagram", err)
			}

			d, err := diagram.Decode(data)
			if err != nil {
				_ = f.Error("STRUCTURAL_ERROR", err.Error(), nil)
				return NewExitError(ExitFailure, "diagram rejected")
			}

			findings := validate.Check(d)
			if opts.Format == "json" {
				if err := f.Success(map[string]any{
					"diagram_id": d.ID,
					"findings":   findings,
					"valid":      len(validate.Errors(findings)) == 0,
				}); err != nil {
					return err
				}
			} else {
				if len(findings) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes, %d edges)\n",
						d.ID, len(d.Nodes), len(d.Edges))
				}
				for _, finding := range findings {
					fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s\n",
						finding.Severity, finding.Category, finding.Message)
				}
			}

			if len(validate.Errors(findings)) > 0 {
				return NewExitError(ExitFailure, "diagram has errors")
			}
			return nil
		},
	}
}
