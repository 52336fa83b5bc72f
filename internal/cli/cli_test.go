package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/marketdesk/internal/mutation"
	"github.com/mesh-intelligence/marketdesk/internal/session"
	"github.com/mesh-intelligence/marketdesk/internal/tabs"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// deskEnv is an isolated configuration and data directory pair.
type deskEnv struct {
	configDir string
	dataDir   string
}

func newDeskEnv(t *testing.T) deskEnv {
	t.Helper()
	for _, key := range []string{
		"MARKETDESK_BACKEND", "MARKETDESK_DATA_DIR", "MARKETDESK_CONFIG_DIR",
		"MARKETDESK_API_BASE_URL", "MARKETDESK_API_TIMEOUT", "MARKETDESK_MUTATION_CONFIRM_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return deskEnv{
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

// run executes desk in-process and returns its stdout.
func (e deskEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func (e deskEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "desk %s", strings.Join(args, " "))
	return out
}

// listJSON runs list --json and decodes the result.
func (e deskEnv) listJSON(t *testing.T, args ...string) session.Result {
	t.Helper()
	out := e.mustRun(t, append([]string{"list", "--json"}, args...)...)
	var res session.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

// idOf returns the ID of the record with the given reference.
func (e deskEnv) idOf(t *testing.T, kind types.Kind, reference string) string {
	t.Helper()
	res := e.listJSON(t, string(kind), "--search", reference)
	require.Len(t, res.Page.Items, 1, "reference %s", reference)
	return res.Page.Items[0].ID
}

func seededEnv(t *testing.T) deskEnv {
	t.Helper()
	e := newDeskEnv(t)
	out := e.mustRun(t, "init", "--demo")
	require.Contains(t, out, "Added 16 demo records")
	return e
}

func TestVersion(t *testing.T) {
	e := newDeskEnv(t)
	out := e.mustRun(t, "version")
	assert.Equal(t, fmt.Sprintf("desk v%s\nmodule: %s\n", Version, modulePath), out)
	assert.NoDirExists(t, e.configDir, "version must not touch the config dir")
}

func TestInit(t *testing.T) {
	e := newDeskEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "desk initialized")
	assert.FileExists(t, filepath.Join(e.configDir, configFileExt))
	assert.FileExists(t, filepath.Join(e.dataDir, "records.jsonl"))

	// A second init keeps the config and does not reseed.
	e.mustRun(t, "init", "--demo")
	out = e.mustRun(t, "init", "--demo")
	assert.Contains(t, out, "already has records")
}

func TestInitDemoNeedsSQLite(t *testing.T) {
	e := newDeskEnv(t)
	t.Setenv("MARKETDESK_BACKEND", types.BackendHTTP)
	t.Setenv("MARKETDESK_API_BASE_URL", "http://127.0.0.1:1/api")

	_, err := e.run(t, "init", "--demo")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestList(t *testing.T) {
	e := seededEnv(t)

	res := e.listJSON(t, "orders", "--sort", "total", "--desc")
	assert.Equal(t, 6, res.Page.TotalItems)
	require.NotEmpty(t, res.Page.Items)
	assert.Equal(t, "ORD-1002", res.Page.Items[0].Reference)
	assert.Equal(t, tabs.Tab{Key: tabs.All, Count: 6}, res.Tabs[0])

	res = e.listJSON(t, "orders", "--category", "grocery", "--tab", types.OrderPending)
	assert.Equal(t, []tabs.Tab{
		{Key: tabs.All, Count: 2},
		{Key: types.OrderPending, Count: 1},
		{Key: types.OrderDelivered, Count: 1},
	}, res.Tabs)
	require.Len(t, res.Page.Items, 1)
	assert.Equal(t, "ORD-1001", res.Page.Items[0].Reference)

	res = e.listJSON(t, "orders", "--size", "4", "--page", "2")
	assert.Equal(t, 2, res.Page.Number)
	assert.Equal(t, 2, res.Page.TotalPages)
	assert.Len(t, res.Page.Items, 2)
}

func TestListTable(t *testing.T) {
	e := seededEnv(t)

	out := e.mustRun(t, "list", "requests", "--tab", types.RequestOpen)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "all (3)"), lines[0])
	assert.Contains(t, lines[0], "[open (1)]")
	assert.Contains(t, lines[1], "REFERENCE")
	assert.Contains(t, lines[2], "REQ-4001")
	assert.Equal(t, "Page 1 of 1 (1 records)", lines[3])

	out = e.mustRun(t, "list", "products", "--search", "no such thing")
	assert.Contains(t, out, "No records.")
}

func TestListDateRange(t *testing.T) {
	e := seededEnv(t)
	today := e.listJSON(t, "orders", "--sort", "created_at", "--desc").Page.Items[0].CreatedAt.Local()

	res := e.listJSON(t, "orders", "--from", today.AddDate(0, 0, -2).Format("2006-01-02"))
	for _, r := range res.Page.Items {
		assert.False(t, r.CreatedAt.Before(today.AddDate(0, 0, -3)), r.Reference)
	}
	assert.NotContains(t, references(res.Page.Items), "ORD-1006")

	res = e.listJSON(t, "orders", "--to", today.AddDate(0, 0, -5).Format("2006-01-02"))
	assert.ElementsMatch(t, []string{"ORD-1005", "ORD-1006"}, references(res.Page.Items))
}

func references(records []types.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Reference
	}
	return out
}

func TestListRejectsBadInput(t *testing.T) {
	e := seededEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"list", "invoices"}},
		{"missing kind", []string{"list"}},
		{"foreign status", []string{"list", "orders", "--status", types.ProductDraft}},
		{"foreign tab", []string{"list", "orders", "--tab", types.RequestOpen}},
		{"bad sort", []string{"list", "orders", "--sort", "colour"}},
		{"bad size", []string{"list", "orders", "--size", "0"}},
		{"bad date", []string{"list", "orders", "--from", "yesterday"}},
		{"inverted range", []string{"list", "orders", "--from", "2026-05-02", "--to", "2026-05-01"}},
		{"unknown flag", []string{"list", "orders", "--colour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, exitCode(err), "%v", err)
		})
	}
}

func TestCounts(t *testing.T) {
	e := seededEnv(t)

	out := e.mustRun(t, "counts", "orders", "--json")
	var c tabs.Counts
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, 6, c.Total)
	assert.Equal(t, 2, c.ByKey[types.OrderPending])
	assert.Equal(t, 6, c.Get(tabs.All))

	out = e.mustRun(t, "counts", "orders", "--by", "category")
	assert.Equal(t, []string{"CATEGORY COUNT", "bakery 1", "books 1", "electronics 2", "grocery 2", "TOTAL 6"}, squeeze(out))

	out = e.mustRun(t, "counts", "products", "--search", "kitchen")
	assert.Equal(t, []string{"STATUS COUNT", "TOTAL 0"}, squeeze(out))

	_, err := e.run(t, "counts", "orders", "--by", "colour")
	assert.Equal(t, exitUserError, exitCode(err))
}

// squeeze returns the output lines with runs of spaces collapsed.
func squeeze(out string) []string {
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		lines = append(lines, strings.Join(strings.Fields(l), " "))
	}
	return lines
}

func TestUpdate(t *testing.T) {
	e := seededEnv(t)
	id := e.idOf(t, types.KindOrders, "ORD-1003")

	out := e.mustRun(t, "update", "orders", id, "status=shipped", "payload.tracking=\"TRK-9\"", "--json")
	var got updateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "confirmed", got.State)
	assert.Equal(t, types.OrderShipped, got.Record.Status)
	assert.Equal(t, "TRK-9", got.Record.Payload["tracking"])

	// The change is persisted and visible to a new session.
	res := e.listJSON(t, "orders", "--tab", types.OrderShipped)
	assert.ElementsMatch(t, []string{"ORD-1003", "ORD-1004"}, references(res.Page.Items))

	out = e.mustRun(t, "update", "orders", id, "total=60")
	assert.Contains(t, out, "60.00")
}

func TestUpdateFailures(t *testing.T) {
	e := seededEnv(t)
	delivered := e.idOf(t, types.KindOrders, "ORD-1005")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"terminal status", []string{"update", "orders", delivered, "status=pending"}, types.ErrMutationRejected},
		{"unknown record", []string{"update", "orders", "missing", "title=x"}, types.ErrNotFound},
		{"foreign status", []string{"update", "orders", delivered, "status=draft"}, types.ErrValidation},
		{"immutable field", []string{"update", "orders", delivered, "id=x"}, types.ErrValidation},
		{"malformed field", []string{"update", "orders", delivered, "title"}, types.ErrValidation},
		{"total not a number", []string{"update", "orders", delivered, "total=lots"}, types.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}

	// Nothing changed.
	res := e.listJSON(t, "orders", "--search", "ORD-1005")
	assert.Equal(t, types.OrderDelivered, res.Page.Items[0].Status)
}

func TestCreateAndDelete(t *testing.T) {
	e := seededEnv(t)

	out := e.mustRun(t, "create", "bookings", "id=b-new", "title=Wine tasting", "customer_name=Ivo Petrov", "total=35", "payload.guests=6", "--json")
	var created types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "b-new", created.ID)
	assert.Equal(t, types.KindBookings, created.Kind)
	assert.Equal(t, types.BookingPending, created.Status)
	assert.Equal(t, 6.0, created.Payload["guests"])
	assert.False(t, created.CreatedAt.IsZero())

	_, err := e.run(t, "create", "bookings", "id=b-new")
	assert.ErrorIs(t, err, types.ErrDuplicateID)
	assert.Equal(t, exitUserError, exitCode(err))

	out = e.mustRun(t, "delete", "bookings", "b-new")
	assert.Equal(t, "Deleted bookings b-new\n", out)

	_, err = e.run(t, "delete", "bookings", "b-new")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestCreateDefaultsAndIDs(t *testing.T) {
	e := newDeskEnv(t)
	e.mustRun(t, "init")

	out := e.mustRun(t, "create", "requests", "--json")
	var created types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.RequestOpen, created.Status)

	_, err := e.run(t, "create", "requests", "status=shipped")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestExportImport(t *testing.T) {
	src := seededEnv(t)
	file := filepath.Join(t.TempDir(), "orders.jsonl")
	src.mustRun(t, "export", "orders", "--output", file)

	exported, malformed, err := readLines(file)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	assert.Equal(t, 6, exported)

	stdout := src.mustRun(t, "export", "products")
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 4)

	// Mix in a product and a line that is not a record.
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(strings.Split(stdout, "\n")[0] + "\n[\"not a record\"]\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dst := newDeskEnv(t)
	dst.mustRun(t, "init")
	out := dst.mustRun(t, "import", "orders", file, "--json")
	var sum importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, importSummary{Imported: 6, OtherKind: 1, Malformed: 1}, sum)
	assert.Equal(t, 6, dst.listJSON(t, "orders").Page.TotalItems)

	// Importing again fails on every duplicate ID.
	_, err = dst.run(t, "import", "orders", file)
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = dst.run(t, "import", "orders", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Equal(t, exitUserError, exitCode(err))
}

// readLines counts the decodable and malformed lines of a JSONL file.
func readLines(path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var ok, bad int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var r types.Record
		if json.Unmarshal([]byte(line), &r) != nil {
			bad++
			continue
		}
		ok++
	}
	return ok, bad, nil
}

func TestInvalidConfig(t *testing.T) {
	e := newDeskEnv(t)
	t.Setenv("MARKETDESK_BACKEND", "postgres")

	_, err := e.run(t, "list", "orders")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"user", userError(errors.New("bad flag")), exitUserError},
		{"system", sysError(types.ErrNotFound), exitSysError},
		{"wrapped not found", fmt.Errorf("loading: %w", types.ErrNotFound), exitUserError},
		{"validation", types.ErrInvalidStatus, exitUserError},
		{"busy", session.ErrBusy, exitUserError},
		{"backend rejection", &mutation.Error{RecordID: "1", Rejected: true, Err: errors.New("422")}, exitUserError},
		{"confirmation request failed", &mutation.Error{RecordID: "1", Err: errors.New("connection refused")}, exitSysError},
		{"unknown", errors.New("disk on fire"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestMetricsFlag(t *testing.T) {
	e := seededEnv(t)
	id := e.idOf(t, types.KindOrders, "ORD-1001")

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--metrics",
		"update", "orders", id, "title=Gift wrap"})
	require.NoError(t, root.Execute())

	assert.Contains(t, stdout.String(), "Gift wrap")
	assert.NotContains(t, stdout.String(), "marketdesk_")
	assert.Contains(t, stderr.String(), "# TYPE marketdesk_mutations_total counter")
	assert.Contains(t, stderr.String(), `marketdesk_mutations_total{kind="orders",outcome="confirmed"}`)

	out := e.mustRun(t, "list", "orders")
	assert.NotContains(t, out, "marketdesk_")
}
