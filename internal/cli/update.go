package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/internal/mutation"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// updateOutput is the JSON form of an update result.
type updateOutput struct {
	State  string       `json:"state"`
	Record types.Record `json:"record"`
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <kind> <id> <field=value>...",
		Short: "Change fields of a record",
		Long: `Update applies the changes locally, sends them to the backend, and waits
for the backend to confirm. A rejected change is rolled back and reported.

Fields: status, reference, title, customer_name, customer_email, category,
total, and payload.<key>. Payload values are parsed as JSON when possible.`,
		Example: `  desk update orders 0198c1 status=processing
  desk update products p-12 total=19.5 payload.stock=40`,
		Args: userArgs(cobra.MinimumNArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd, args[0], args[1], args[2:])
		},
	}
}

func (a *app) runUpdate(cmd *cobra.Command, kindArg, id string, fields []string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	patch, err := types.ParsePatch(fields)
	if err != nil {
		return userError(err)
	}

	ctx := cmd.Context()
	s, closeSession, err := a.openSession(ctx, kind)
	if err != nil {
		return err
	}
	defer closeSession()

	ticket, err := s.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	if err := ticket.Wait(ctx); err != nil {
		return err
	}

	if st := ticket.State(); st != mutation.Confirmed {
		return sysError(fmt.Errorf("update of %s ended %s", id, st))
	}

	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, updateOutput{State: ticket.State().String(), Record: rec})
	}
	return printRecord(out, rec)
}
