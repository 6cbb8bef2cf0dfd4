// Package migrations holds goose migrations that need Go code in addition to
// the embedded SQL files.
package migrations

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upOutputToBlob, downOutputToBlob)
}

// upOutputToBlob converts sealed run output from base64 text to a raw BLOB
// column. Early databases stored the compressed output base64-encoded, which
// wasted roughly a third of the space.
func upOutputToBlob(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE run_output_blob ADD COLUMN data_blob BLOB`)
	if err != nil {
		return fmt.Errorf("adding blob column : %w", err)
	}

	rows, err := tx.Query("SELECT run_id, data FROM run_output_blob")
	if err != nil {
		return fmt.Errorf("getting all rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var runID string
		var dataText sql.NullString
		if err := rows.Scan(&runID, &dataText); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}

		var dataBytes []byte
		if dataText.Valid && dataText.String != "" {
			dataBytes, err = base64.StdEncoding.DecodeString(dataText.String)
			if err != nil {
				return fmt.Errorf("decoding output for run %s : %w", runID, err)
			}
		}
		_, err = tx.Exec("UPDATE run_output_blob SET data_blob = ? WHERE run_id = ?", dataBytes, runID)
		if err != nil {
			return fmt.Errorf("updating row %s : %w", runID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}

	if _, err := tx.Exec("ALTER TABLE run_output_blob DROP COLUMN data"); err != nil {
		return fmt.Errorf("dropping data column : %w", err)
	}
	if _, err := tx.Exec("ALTER TABLE run_output_blob RENAME COLUMN data_blob TO data"); err != nil {
		return fmt.Errorf("renaming data_blob column: %w", err)
	}
	return nil
}

func downOutputToBlob(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE run_output_blob ADD COLUMN data_text TEXT`); err != nil {
		return fmt.Errorf("failed to add text column for rollback: %w", err)
	}

	rows, err := tx.Query("SELECT run_id, data FROM run_output_blob")
	if err != nil {
		return fmt.Errorf("failed to query output blobs for rollback: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var runID string
		var dataBytes []byte
		if err := rows.Scan(&runID, &dataBytes); err != nil {
			return fmt.Errorf("failed to scan row for rollback: %w", err)
		}
		dataText := base64.StdEncoding.EncodeToString(dataBytes)
		if _, err := tx.Exec("UPDATE run_output_blob SET data_text = ? WHERE run_id = ?", dataText, runID); err != nil {
			return fmt.Errorf("failed to update row for run %s for rollback: %w", runID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error during rollback: %w", err)
	}

	if _, err := tx.Exec(`ALTER TABLE run_output_blob DROP COLUMN data`); err != nil {
		return fmt.Errorf("failed to drop blob data column for rollback: %w", err)
	}
	if _, err := tx.Exec(`ALTER TABLE run_output_blob RENAME COLUMN data_text TO data`); err != nil {
		return fmt.Errorf("failed to rename data_text column for rollback: %w", err)
	}
	return nil
}
