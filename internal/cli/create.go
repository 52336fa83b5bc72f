package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

func (a *app) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <kind> [field=value]...",
		Short: "Create a record",
		Long: `Create stores a new record. The backend assigns an ID unless id=<id> is
given, and the status defaults to the first status of the kind.`,
		Example: `  desk create orders reference=ORD-1009 customer_name="Ada Byrne" total=42
  desk create requests title="Bulk quote" payload.quantity=200`,
		Args: userArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd, args[0], args[1:])
		},
	}
}

func (a *app) runCreate(cmd *cobra.Command, kindArg string, fields []string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	rec, err := recordFromFields(kind, fields)
	if err != nil {
		return userError(err)
	}

	ctx := cmd.Context()
	s, closeSession, err := a.openSession(ctx, kind)
	if err != nil {
		return err
	}
	defer closeSession()

	created, err := s.Create(ctx, rec)
	if err != nil {
		return err
	}
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), created)
	}
	return printRecord(cmd.OutOrStdout(), created)
}

// recordFromFields builds a new record from field=value arguments. An id
// argument sets the ID; the rest are applied as a patch.
func recordFromFields(kind types.Kind, fields []string) (types.Record, error) {
	rec := types.Record{Kind: kind}
	rest := make([]string, 0, len(fields))
	for _, f := range fields {
		if id, ok := strings.CutPrefix(f, types.FieldID+"="); ok {
			rec.ID = id
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) == 0 {
		return rec, nil
	}

	patch, err := types.ParsePatch(rest)
	if err != nil {
		return types.Record{}, err
	}
	rec, err = patch.Apply(rec, time.Time{})
	if err != nil {
		return types.Record{}, err
	}
	rec.UpdatedAt = time.Time{}
	return rec, nil
}
