package database

import (
	"database/sql"
	"fmt"
)

// MergeConflictError marks a merge failure caused by concurrent state (a
// card vanishing mid-merge, a locked database) rather than by the request
// itself. Callers map it to a conflict response.
type MergeConflictError struct {
	Err error
}

func (e *MergeConflictError) Error() string { return e.Err.Error() }

func (e *MergeConflictError) Unwrap() error { return e.Err }

func mergeConflict(format string, args ...interface{}) error {
	return &MergeConflictError{Err: fmt.Errorf(format, args...)}
}

// MergeCards collapses duplicate cards into one kept card inside a single
// transaction: every benefit and campaign pointing at a duplicate is
// repointed to the kept card, then the duplicates are deleted. Nothing is
// changed unless every duplicate checks out.
func (db *DB) MergeCards(keepID string, duplicateIDs []string) (int, error) {
	if keepID == "" {
		return 0, fmt.Errorf("keep_id is required")
	}

	// De-duplicate the input and reject merging a card into itself.
	seen := make(map[string]bool, len(duplicateIDs))
	dups := duplicateIDs[:0:0]
	for _, id := range duplicateIDs {
		if id == keepID {
			return 0, fmt.Errorf("card %s cannot be merged into itself", id)
		}
		if !seen[id] {
			seen[id] = true
			dups = append(dups, id)
		}
	}
	if len(dups) == 0 {
		return 0, fmt.Errorf("duplicate_ids is required")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, mergeConflict("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var keepBankID string
	err = tx.QueryRow(`SELECT bank_id FROM cards WHERE id = ?`, keepID).Scan(&keepBankID)
	if err == sql.ErrNoRows {
		return 0, mergeConflict("card %s not found", keepID)
	}
	if err != nil {
		return 0, mergeConflict("failed to load card %s: %w", keepID, err)
	}

	for _, id := range dups {
		var bankID string
		err = tx.QueryRow(`SELECT bank_id FROM cards WHERE id = ?`, id).Scan(&bankID)
		if err == sql.ErrNoRows {
			return 0, mergeConflict("card %s not found", id)
		}
		if err != nil {
			return 0, mergeConflict("failed to load card %s: %w", id, err)
		}
		if bankID != keepBankID {
			return 0, fmt.Errorf("card %s belongs to a different bank than %s", id, keepID)
		}
	}

	for _, id := range dups {
		// Repoint benefits where the kept card has none for that brand;
		// a benefit the kept card already carries wins, the duplicate's
		// copy is dropped.
		if _, err := tx.Exec(`UPDATE OR IGNORE ecosystem_benefits SET card_id = ? WHERE card_id = ?`, keepID, id); err != nil {
			return 0, mergeConflict("failed to repoint benefits from %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM ecosystem_benefits WHERE card_id = ?`, id); err != nil {
			return 0, mergeConflict("failed to drop leftover benefits for %s: %w", id, err)
		}
		if _, err := tx.Exec(`UPDATE campaigns SET card_id = ? WHERE card_id = ?`, keepID, id); err != nil {
			return 0, mergeConflict("failed to repoint campaigns from %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
			return 0, mergeConflict("failed to delete card %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, mergeConflict("failed to commit merge: %w", err)
	}
	return len(dups), nil
}
