package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// kindNames is the list of record kinds for help and error output.
var kindNames = func() string {
	names := make([]string, len(types.Kinds))
	for i, k := range types.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}()

// parseKind converts a kind argument, failing with a user error that lists
// the valid kinds.
func parseKind(arg string) (types.Kind, error) {
	kind, err := types.ParseKind(arg)
	if err != nil {
		return "", userError(fmt.Errorf("unknown kind %q (valid: %s): %w", arg, kindNames, err))
	}
	return kind, nil
}

// userArgs turns argument validation failures into user errors.
func userArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printRecords writes records as an aligned table.
func printRecords(w io.Writer, records []types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERENCE\tSTATUS\tNAME\tCATEGORY\tTOTAL\tCREATED")
	for _, r := range records {
		name := r.Title
		if r.CustomerName != "" {
			name = r.CustomerName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.ID, dash(r.Reference), r.Status, dash(name), dash(r.Category), r.Total,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// printRecord writes one record as field: value lines.
func printRecord(w io.Writer, r types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", r.ID)
	fmt.Fprintf(tw, "kind:\t%s\n", r.Kind)
	fmt.Fprintf(tw, "status:\t%s\n", r.Status)
	for _, f := range []struct{ name, value string }{
		{types.FieldReference, r.Reference},
		{types.FieldTitle, r.Title},
		{types.FieldCustomerName, r.CustomerName},
		{types.FieldCustomerEmail, r.CustomerEmail},
		{types.FieldCategory, r.Category},
	} {
		if f.value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", f.name, f.value)
		}
	}
	fmt.Fprintf(tw, "total:\t%.2f\n", r.Total)
	for k, v := range r.Payload {
		fmt.Fprintf(tw, "payload.%s:\t%v\n", k, v)
	}
	fmt.Fprintf(tw, "created_at:\t%s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "updated_at:\t%s\n", r.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// criteriaFlags are the filter flags shared by list and counts.
type criteriaFlags struct {
	search   string
	status   string
	category string
	from     string
	to       string
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive text to find in id, reference, title, customer name or email")
	cmd.Flags().StringVar(&f.status, "status", types.FilterAll, "status to show, or all")
	cmd.Flags().StringVar(&f.category, "category", types.FilterAll, "category to show, or all")
	cmd.Flags().StringVar(&f.from, "from", "", "earliest creation date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "latest creation date, inclusive (YYYY-MM-DD or RFC 3339)")
}

// criteria builds filter criteria from the flags.
func (f *criteriaFlags) criteria() (types.FilterCriteria, error) {
	c := types.FilterCriteria{
		SearchText:      f.search,
		StatusFilter:    f.status,
		SecondaryFilter: f.category,
	}
	if f.from == "" && f.to == "" {
		return c, nil
	}

	r := &types.DateRange{End: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)}
	if f.from != "" {
		start, _, err := parseDate(f.from)
		if err != nil {
			return types.FilterCriteria{}, err
		}
		r.Start = start
	}
	if f.to != "" {
		end, dateOnly, err := parseDate(f.to)
		if err != nil {
			return types.FilterCriteria{}, err
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		r.End = end
	}
	c.DateRange = r
	return c, nil
}

// parseDate accepts a calendar date in local time or an RFC 3339
// timestamp. dateOnly reports which one s was.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, userError(fmt.Errorf("%w: date %q (expected YYYY-MM-DD or RFC 3339)", types.ErrInvalidFilter, s))
}
