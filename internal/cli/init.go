package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize desk storage",
		Long: `Create the configuration directory with a default config.yaml and, for
the sqlite backend, the data directory. With --demo an empty data directory
is filled with sample records of every kind.`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, demo)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed an empty data directory with sample records")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, demo bool) error {
	out := cmd.OutOrStdout()
	if a.config.Backend != types.BackendSQLite {
		if demo {
			return userError(fmt.Errorf("--demo needs the sqlite backend, configured backend is %s", a.config.Backend))
		}
		fmt.Fprintf(out, "Configuration written to %s (backend %s)\n", a.configDir, a.config.Backend)
		return nil
	}

	backend, err := a.attachSQLite()
	if err != nil {
		return err
	}
	defer backend.Detach()

	if demo {
		n, err := backend.Seed(cmd.Context())
		if err != nil {
			return sysError(fmt.Errorf("seed demo records: %w", err))
		}
		if n == 0 {
			fmt.Fprintln(out, "Data directory already has records; demo data not added")
		} else {
			fmt.Fprintf(out, "Added %d demo records\n", n)
		}
	}

	if err := backend.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}
	fmt.Fprintf(out, "desk initialized (config %s, data %s)\n", a.configDir, a.config.DataDir)
	return nil
}
