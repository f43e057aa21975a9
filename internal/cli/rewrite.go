package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/engine"
	"github.com/sidlab/sid/internal/rulepack"
)

// NewRewriteCommand creates the rewrite command: apply a single rule
// or a whole CUE rule pack to a compiled expression.
func NewRewriteCommand(opts *RootOptions) *cobra.Command {
	var (
		exprText    string
		pattern     string
		replacement string
		ruleID      string
		packPath    string
	)

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Apply a rewrite rule or rule pack to an expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			if exprText == "" {
				return NewExitError(ExitCommandError, "--expr is required")
			}
			if packPath == "" && (pattern == "" || replacement == "") {
				return NewExitError(ExitCommandError, "either --pack or --pattern/--replacement is required")
			}

			e, err := engine.New(engine.Config{NumNodes: 4, TotalMass: 12})
			if err != nil {
				return WrapExitError(ExitCommandError, "create engine", err)
			}
			if err := e.SetDiagramExpr(exprText, "d_expr"); err != nil {
				_ = f.Error("PARSE_ERROR", err.Error(), nil)
				return NewExitError(ExitFailure, "expression rejected")
			}

			type outcome struct {
				RuleID  string `json:"rule_id"`
				Applied bool   `json:"applied"`
				Message string `json:"message"`
			}
			var outcomes []outcome

			if packPath != "" {
				pack, err := rulepack.LoadFile(packPath)
				if err != nil {
					_ = f.Error("RULE_PACK_ERROR", err.Error(), nil)
					return NewExitError(ExitFailure, "rule pack rejected")
				}
				f.VerboseLog("loaded pack %s with %d rules", pack.Name, len(pack.Rules))
				results, err := pack.ApplyAll(e)
				for i, res := range results {
					outcomes = append(outcomes, outcome{
						RuleID:  pack.Rules[i].ID,
						Applied: res.Applied,
						Message: res.Message,
					})
				}
				if err != nil {
					_ = f.Error("REWRITE_ERROR", err.Error(), outcomes)
					return NewExitError(ExitFailure, "rewrite failed")
				}
			} else {
				res, err := e.ApplyRewrite(pattern, replacement, ruleID)
				if err != nil {
					_ = f.Error("REWRITE_ERROR", err.Error(), nil)
					return NewExitError(ExitFailure, "rewrite failed")
				}
				outcomes = append(outcomes, outcome{RuleID: ruleID, Applied: res.Applied, Message: res.Message})
			}

			diagramJSON, err := e.DiagramJSON()
			if err != nil {
				return WrapExitError(ExitCommandError, "encode diagram", err)
			}
			if opts.Format == "json" {
				return f.Success(map[string]any{
					"results": outcomes,
					"diagram": json.RawMessage(diagramJSON),
				})
			}
			for _, o := range outcomes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: applied=%v %s\n", o.RuleID, o.Applied, o.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(diagramJSON))
			return nil
		},
	}

	cmd.Flags().StringVar(&exprText, "expr", "", "expression to compile and rewrite")
	cmd.Flags().StringVar(&pattern, "pattern", "", "rewrite pattern")
	cmd.Flags().StringVar(&replacement, "replacement", "", "rewrite replacement")
	cmd.Flags().StringVar(&ruleID, "rule-id", "r1", "rule id for a single rewrite")
	cmd.Flags().StringVar(&packPath, "pack", "", "CUE rule pack file")
	return cmd
}
