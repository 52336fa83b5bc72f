package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

const insertSQL = `INSERT INTO records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateSQL = `UPDATE records SET status = ?, reference = ?, title = ?, customer_name = ?,
    customer_email = ?, category = ?, total = ?, payload = ?, updated_at = ?
    WHERE record_id = ?`

// List returns every record of kind in insertion order.
func (b *Backend) List(ctx context.Context, kind types.Kind) ([]types.Record, error) {
	if !kind.Valid() {
		return nil, types.ErrInvalidKind
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, ErrDetached
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE kind = ? ORDER BY seq", string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind, err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", kind, err)
	}
	return records, nil
}

// Create stores a new record. An empty ID gets a UUID v7, an empty status
// the kind's initial status, and zero timestamps the current time.
// Returns ErrDuplicateID if the ID is taken.
func (b *Backend) Create(ctx context.Context, r types.Record) (types.Record, error) {
	if !r.Kind.Valid() {
		return types.Record{}, types.ErrInvalidKind
	}
	if r.ID == "" {
		r.ID = generateUUID()
	}
	if r.Status == "" {
		r.Status = r.Kind.InitialStatus()
	}
	now := b.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() || r.UpdatedAt.Before(r.CreatedAt) {
		r.UpdatedAt = r.CreatedAt
	}
	if err := r.Validate(); err != nil {
		return types.Record{}, err
	}
	args, err := recordArgs(r)
	if err != nil {
		return types.Record{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Record{}, ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getRecord(ctx, tx, r.ID); err == nil {
		return types.Record{}, fmt.Errorf("record %s: %w", r.ID, types.ErrDuplicateID)
	} else if !errors.Is(err, types.ErrNotFound) {
		return types.Record{}, err
	}
	if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
		return types.Record{}, fmt.Errorf("inserting record %s: %w", r.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("committing transaction: %w", err)
	}
	if err := b.persistJSONL(ctx); err != nil {
		return types.Record{}, err
	}
	return r.Clone(), nil
}

// Update applies patch to the record and returns the stored result. A
// malformed patch or a status change out of a terminal status is rejected
// with an error wrapping ErrMutationRejected.
func (b *Backend) Update(ctx context.Context, kind types.Kind, id string, patch types.Patch) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Record{}, ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getRecord(ctx, tx, id)
	if err != nil {
		return types.Record{}, err
	}
	if current.Kind != kind {
		return types.Record{}, fmt.Errorf("%s record %s: %w", kind, id, types.ErrNotFound)
	}
	if err := patch.Validate(kind); err != nil {
		return types.Record{}, fmt.Errorf("%w: %w", types.ErrMutationRejected, err)
	}
	if v, ok := patch[types.FieldStatus]; ok {
		to := v.(string)
		if err := types.CanTransition(kind, current.Status, to); err != nil {
			return types.Record{}, fmt.Errorf("%w: %s %s -> %s: %w", types.ErrMutationRejected, kind, current.Status, to, err)
		}
	}

	updated, err := patch.Apply(current, b.now())
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %w", types.ErrMutationRejected, err)
	}
	payload, err := encodePayload(updated.Payload)
	if err != nil {
		return types.Record{}, err
	}
	if _, err := tx.ExecContext(ctx, updateSQL,
		updated.Status, updated.Reference, updated.Title, updated.CustomerName,
		updated.CustomerEmail, updated.Category, updated.Total, payload,
		formatTime(updated.UpdatedAt), id,
	); err != nil {
		return types.Record{}, fmt.Errorf("updating record %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("committing transaction: %w", err)
	}
	if err := b.persistJSONL(ctx); err != nil {
		return types.Record{}, err
	}
	b.logger.DebugContext(ctx, "record updated", slog.String("id", id), slog.String("kind", string(kind)))
	return updated, nil
}

// Delete removes the record with the given ID.
// Returns ErrNotFound if no record of kind has that ID.
func (b *Backend) Delete(ctx context.Context, kind types.Kind, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return ErrDetached
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM records WHERE record_id = ? AND kind = ?", id, string(kind))
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s record %s: %w", kind, id, types.ErrNotFound)
	}
	return b.persistJSONL(ctx)
}

// Count returns the number of stored records of every kind.
func (b *Backend) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, ErrDetached
	}
	var n int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// persistJSONL rewrites records.jsonl from the database. The caller must
// hold b.mu.
func (b *Backend) persistJSONL(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records ORDER BY seq")
	if err != nil {
		return fmt.Errorf("querying records for JSONL: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating records for JSONL: %w", err)
	}
	return WriteRecordsFile(filepath.Join(b.dataDir, recordsJSONL), records)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, id string) (types.Record, error) {
	row := q.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE record_id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("record %s: %w", id, types.ErrNotFound)
	}
	return r, err
}

func scanRecord(s rowScanner) (types.Record, error) {
	var (
		r                    types.Record
		kind                 string
		payload              sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&r.ID, &kind, &r.Status, &r.Reference, &r.Title, &r.CustomerName,
		&r.CustomerEmail, &r.Category, &r.Total, &payload, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, err
		}
		return types.Record{}, fmt.Errorf("scanning record: %w", err)
	}
	r.Kind = types.Kind(kind)
	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
			return types.Record{}, fmt.Errorf("decoding payload of %s: %w", r.ID, err)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Record{}, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Record{}, err
	}
	return r, nil
}

// recordArgs returns the insert arguments for r in recordColumns order.
func recordArgs(r types.Record) ([]any, error) {
	payload, err := encodePayload(r.Payload)
	if err != nil {
		return nil, err
	}
	return []any{
		r.ID, string(r.Kind), r.Status, r.Reference, r.Title, r.CustomerName,
		r.CustomerEmail, r.Category, r.Total, payload,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	}, nil
}

func encodePayload(p map[string]any) (any, error) {
	if len(p) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
