package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sidlab/sid/internal/config"
	"github.com/sidlab/sid/internal/router"
	"github.com/sidlab/sid/internal/rulepack"
	"github.com/sidlab/sid/internal/store"
)

// NewServeCommand creates the serve command: run the line-delimited
// JSON protocol on stdin/stdout until the input closes.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var (
		configPath string
		dbFlag     string
		packFlag   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the line-delimited JSON command protocol on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := dbFlag
			packPath := packFlag
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "load config", err)
				}
				if dbPath == "" {
					dbPath = cfg.DBPath
				}
				if packPath == "" {
					packPath = cfg.RulePack
				}
			}

			var routerOpts []router.Option
			if dbPath != "" {
				s, err := store.Open(dbPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "open session store", err)
				}
				defer s.Close()
				routerOpts = append(routerOpts, router.WithRecorder(s))
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// A configured rule pack is validated at startup and
			// re-validated on every save, so authors see breakage while
			// the session is still running.
			if packPath != "" {
				w, err := rulepack.NewWatcher(packPath, func(p *rulepack.Pack, err error) {
					if err != nil {
						slog.Error("rule pack invalid", "path", packPath, "error", err)
						return
					}
					slog.Info("rule pack loaded", "path", packPath, "pack", p.Name, "rules", len(p.Rules))
				})
				if err != nil {
					return WrapExitError(ExitCommandError, "watch rule pack", err)
				}
				go func() { _ = w.Run(ctx) }()
			}

			rt := router.New(routerOpts...)
			if err := rt.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return WrapExitError(ExitCommandError, "serve", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite session store path (overrides config db_path)")
	cmd.Flags().StringVar(&packFlag, "pack", "", "CUE rule pack to validate and watch (overrides config rule_pack)")
	return cmd
}
