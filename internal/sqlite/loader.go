package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// loadJSONL reads records.jsonl from dataDir and inserts every valid record
// into the database in file order. Loading is transactional: all succeed or
// the database remains empty. Malformed lines, records that fail
// validation, and repeated IDs are skipped; unknown JSON fields are
// ignored. Returns the number of records loaded.
func loadJSONL(db *sql.DB, dataDir string) (int, error) {
	raw, err := readJSONL(filepath.Join(dataDir, recordsJSONL))
	if err != nil {
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, line := range raw {
		var r types.Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		if r.Validate() != nil {
			continue
		}
		args, err := recordArgs(r)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}
