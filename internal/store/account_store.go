package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/finmail/internal/model"
)

const accountColumns = `id, user_id, email_address, provider, credentials,
	server_settings, last_checked, created_at`

// accountRow mirrors the accounts table.
type accountRow struct {
	ID             string       `db:"id"`
	UserID         string       `db:"user_id"`
	Email          string       `db:"email_address"`
	Provider       string       `db:"provider"`
	Credentials    string       `db:"credentials"`
	ServerSettings string       `db:"server_settings"`
	LastChecked    sql.NullTime `db:"last_checked"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r accountRow) toModel() model.MailboxAccount {
	acct := model.MailboxAccount{
		ID:             r.ID,
		UserID:         r.UserID,
		Email:          r.Email,
		Provider:       r.Provider,
		Credentials:    r.Credentials,
		ServerSettings: r.ServerSettings,
		CreatedAt:      r.CreatedAt,
	}
	if r.LastChecked.Valid {
		t := r.LastChecked.Time
		acct.LastChecked = &t
	}
	return acct
}

// CreateAccount inserts a connected mailbox. The credential and settings
// blobs must already be sealed.
func (s *SQLiteStore) CreateAccount(ctx context.Context, acct model.MailboxAccount) error {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}
	if acct.Credentials == "" || acct.ServerSettings == "" {
		return fmt.Errorf("creating account %s: credentials are not sealed", acct.Email)
	}

	var lastChecked sql.NullTime
	if acct.LastChecked != nil {
		lastChecked = sql.NullTime{Time: acct.LastChecked.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.UserID, acct.Email, acct.Provider,
		acct.Credentials, acct.ServerSettings,
		lastChecked, acct.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating account %s: %w", acct.Email, err)
	}

	return nil
}

// GetAccount retrieves a single account by its ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.MailboxAccount, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account %s: %w", id, err)
	}

	acct := row.toModel()
	return &acct, nil
}

// GetAccounts lists the accounts owned by userID, oldest first.
func (s *SQLiteStore) GetAccounts(ctx context.Context, userID string) ([]model.MailboxAccount, error) {
	return s.selectAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY created_at, email_address",
		userID,
	)
}

// GetAllAccounts lists every stored account, for the scanner.
func (s *SQLiteStore) GetAllAccounts(ctx context.Context) ([]model.MailboxAccount, error) {
	return s.selectAccounts(ctx,
		"SELECT " + accountColumns + " FROM accounts ORDER BY created_at, email_address",
	)
}

func (s *SQLiteStore) selectAccounts(ctx context.Context, query string, args ...interface{}) ([]model.MailboxAccount, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}

	accounts := make([]model.MailboxAccount, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, r.toModel())
	}
	return accounts, nil
}

// TouchAccount records that the account was scanned at the given time.
func (s *SQLiteStore) TouchAccount(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET last_checked = ? WHERE id = ?", at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("touching account %s: %w", id, err)
	}
	return checkAffected(res, "touching account", id)
}

// RemoveAccount deletes an account. Insights already extracted from it
// are kept.
func (s *SQLiteStore) RemoveAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing account %s: %w", id, err)
	}
	return checkAffected(res, "removing account", id)
}
