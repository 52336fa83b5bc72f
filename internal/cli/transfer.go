package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/internal/sqlite"
)

// importSummary reports what an import did.
type importSummary struct {
	Imported  int `json:"imported"`
	OtherKind int `json:"other_kind"`
	Malformed int `json:"malformed"`
	Failed    int `json:"failed"`
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Create records of a kind from a JSONL file",
		Long: `Import reads one JSON record per line and creates the records of the
given kind through the configured backend. Lines of other kinds are skipped,
and records the backend refuses are reported and counted.`,
		Args: userArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0], args[1])
		},
	}
}

func (a *app) runImport(cmd *cobra.Command, kindArg, path string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	records, malformed, err := sqlite.ReadRecordsFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return userError(err)
		}
		return sysError(err)
	}

	ctx := cmd.Context()
	s, closeSession, err := a.openSession(ctx, kind)
	if err != nil {
		return err
	}
	defer closeSession()

	sum := importSummary{Malformed: malformed}
	for _, r := range records {
		if r.Kind != kind {
			sum.OtherKind++
			continue
		}
		if _, err := s.Create(ctx, r); err != nil {
			sum.Failed++
			a.logger.WarnContext(ctx, "record not imported", slog.String("id", r.ID), slog.Any("error", err))
			continue
		}
		sum.Imported++
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		if err := printJSON(out, sum); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Imported %d %s (%d of other kinds, %d malformed, %d failed)\n",
			sum.Imported, kind, sum.OtherKind, sum.Malformed, sum.Failed)
	}
	if sum.Failed > 0 {
		return userError(fmt.Errorf("%d record(s) could not be imported", sum.Failed))
	}
	return nil
}

func (a *app) newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <kind>",
		Short: "Write the records of a kind as JSONL",
		Long: `Export writes every record of the kind, one JSON object per line, to
stdout or to the file named by --output.`,
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			s, closeSession, err := a.openSession(cmd.Context(), kind)
			if err != nil {
				return err
			}
			defer closeSession()

			records := s.Records()
			if output != "" {
				if err := sqlite.WriteRecordsFile(output, records); err != nil {
					return sysError(fmt.Errorf("export %s: %w", kind, err))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d %s to %s\n", len(records), kind, output)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range records {
				if err := enc.Encode(r); err != nil {
					return sysError(err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}
