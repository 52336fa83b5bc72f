package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/internal/tabs"
)

const (
	countByStatus   = "status"
	countByCategory = "category"
)

func (a *app) newCountsCmd() *cobra.Command {
	var (
		f  criteriaFlags
		by string
	)
	cmd := &cobra.Command{
		Use:   "counts <kind>",
		Short: "Count filtered records per status or category",
		Example: `  desk counts orders
  desk counts products --by category --search lamp`,
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCounts(cmd, args[0], f, by)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&by, "by", countByStatus, "bucket key: status or category")
	return cmd
}

func (a *app) runCounts(cmd *cobra.Command, kindArg string, f criteriaFlags, by string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	var (
		key   tabs.KeyFunc
		order []string
	)
	switch by {
	case countByStatus:
		key, order = tabs.ByStatus, kind.Statuses()
	case countByCategory:
		key = tabs.ByCategory
	default:
		return userError(fmt.Errorf("unknown --by %q (valid: status, category)", by))
	}
	criteria, err := f.criteria()
	if err != nil {
		return err
	}

	s, closeSession, err := a.openSession(cmd.Context(), kind)
	if err != nil {
		return err
	}
	defer closeSession()

	counts, err := s.Counts(criteria, key)
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, counts)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tCOUNT\n", strings.ToUpper(by))
	for _, t := range tabs.Tabs(counts, order)[1:] {
		fmt.Fprintf(tw, "%s\t%d\n", dash(t.Key), t.Count)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", counts.Total)
	return tw.Flush()
}
