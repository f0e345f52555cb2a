package store

import (
	"context"
	"fmt"
	"time"
)

// MarkScanned records that the message with uid in folder has been
// classified, whether or not it produced insights.
func (s *SQLiteStore) MarkScanned(ctx context.Context, accountID, folder string, uid uint32, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scanned_messages (account_id, folder, uid, scanned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, folder, uid) DO UPDATE SET scanned_at = excluded.scanned_at`,
		accountID, folder, int64(uid), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking %s uid %d scanned for account %s: %w", folder, uid, accountID, err)
	}
	return nil
}

// IsScanned reports whether MarkScanned was called for the message.
func (s *SQLiteStore) IsScanned(ctx context.Context, accountID, folder string, uid uint32) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM scanned_messages WHERE account_id = ? AND folder = ? AND uid = ?",
		accountID, folder, int64(uid),
	)
	if err != nil {
		return false, fmt.Errorf("checking %s uid %d for account %s: %w", folder, uid, accountID, err)
	}
	return n > 0, nil
}
