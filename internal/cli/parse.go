package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/expr"
)

// NewParseCommand creates the parse command: check an expression and
// print its canonical form.
func NewParseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse EXPR",
		Short: "Parse a SID expression and print its canonical form",
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
				var pe *expr.ParseError
				if errors.As(err, &pe) {
					_ = f.Error("PARSE_ERROR", pe.Error(), map[string]any{"position": pe.Pos})
					return NewExitError(ExitFailure, "parse failed")
				}
				return WrapExitError(ExitCommandError, "parse", err)
			}

			if opts.Format == "json" {
				return f.Success(map[string]any{"expr": ast.String()})
			}
			return f.Success(fmt.Sprintf("ok: %s", ast))
		},
	}
}
