package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
)

// NewBuildCommand creates the build command: compile an expression
// into the diagram wire JSON.
func NewBuildCommand(opts *RootOptions) *cobra.Command {
	var diagramID string

	cmd := &cobra.Command{
		Use:   "build EXPR",
		Short: "Compile a SID expression into diagram JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}

			ast, err := expr.Parse(args[0])
			if err != nil {
				_ = f.Error("PARSE_ERROR", err.Error(), nil)
				return NewExitError(ExitFailure, "parse failed")
			}

			d, err := diagram.Compile(ast, diagramID, "")
			if err != nil {
				_ = f.Error("STRUCTURAL_ERROR", err.Error(), nil)
				return NewExitError(ExitFailure, "compile failed")
			}

			data, err := d.MarshalJSON()
			if err != nil {
				return WrapExitError(ExitCommandError, "encode diagram", err)
			}
			if opts.Format == "json" {
				return f.Success(json.RawMessage(data))
			}

			var pretty map[string]any
			if err := json.Unmarshal(data, &pretty); err != nil {
				return WrapExitError(ExitCommandError, "decode diagram", err)
			}
			indented, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return WrapExitError(ExitCommandError, "encode diagram", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(indented))
			return nil
		},
	}

	cmd.Flags().StringVar(&diagramID, "id", "d_expr", "diagram id")
	return cmd
}
