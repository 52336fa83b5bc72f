package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/internal/filter"
	"github.com/mesh-intelligence/marketdesk/internal/session"
	"github.com/mesh-intelligence/marketdesk/internal/tabs"
)

type listFlags struct {
	criteriaFlags
	tab  string
	sort string
	desc bool
	page int
	size int
}

func (a *app) newListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List records of a kind with status tabs",
		Long: `List filters the records of one kind, shows the status tabs with the
number of matching records on each, and prints one page of the active tab.

Kinds: ` + kindNames,
		Example: `  desk list orders --status pending
  desk list orders --search gift --tab shipped --sort total --desc
  desk list bookings --from 2026-04-01 --to 2026-04-30 --page 2`,
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, args[0], f)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.tab, "tab", tabs.All, "status tab to show, or all")
	cmd.Flags().StringVar(&f.sort, "sort", filter.SortCreatedAt, "sort key: created_at, updated_at, total, title, status")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort in descending order")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.size, "size", 20, "records per page")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, kindArg string, f listFlags) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
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

	res, err := s.Run(session.Query{
		Criteria:  criteria,
		Tab:       f.tab,
		SortKey:   f.sort,
		Ascending: !f.desc,
		Page:      f.page,
		Size:      f.size,
	})
	if err != nil {
		return userError(err)
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, res)
	}
	printTabs(out, res.Tabs, f.tab)
	if len(res.Page.Items) == 0 {
		fmt.Fprintln(out, "No records.")
		return nil
	}
	if err := printRecords(out, res.Page.Items); err != nil {
		return err
	}
	fmt.Fprintf(out, "Page %d of %d (%d records)\n", res.Page.Number, res.Page.TotalPages, res.Page.TotalItems)
	return nil
}

// printTabs writes the tab bar, marking the active tab.
func printTabs(w io.Writer, ts []tabs.Tab, active string) {
	if active == "" {
		active = tabs.All
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		label := fmt.Sprintf("%s (%d)", t.Key, t.Count)
		if t.Key == active {
			label = "[" + label + "]"
		}
		parts[i] = label
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}
