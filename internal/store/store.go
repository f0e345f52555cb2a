package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/finmail/internal/model"
)

// ErrNotFound is returned when an account or insight id matches no row.
var ErrNotFound = errors.New("not found")

// InsightFilter narrows an insight query. Nil fields match everything.
type InsightFilter struct {
	Type     *model.InsightType
	Status   *model.InsightStatus
	DateFrom *time.Time // created_at >= DateFrom
	DateTo   *time.Time // created_at <= DateTo
	Limit    int
}

// Store defines the persistence interface for mailbox accounts and the
// insights extracted from their messages.
type Store interface {
	// === Accounts ===

	CreateAccount(ctx context.Context, acct model.MailboxAccount) error
	GetAccount(ctx context.Context, id string) (*model.MailboxAccount, error)
	GetAccounts(ctx context.Context, userID string) ([]model.MailboxAccount, error)
	GetAllAccounts(ctx context.Context) ([]model.MailboxAccount, error)
	TouchAccount(ctx context.Context, id string, at time.Time) error
	RemoveAccount(ctx context.Context, id string) error

	// === Insights ===

	SaveInsights(ctx context.Context, userID, messageID string, insights []model.Insight) ([]model.Insight, error)
	QueryInsights(ctx context.Context, userID string, filter InsightFilter) ([]model.Insight, error)
	UpdateInsightStatus(ctx context.Context, userID, id string, status model.InsightStatus) error
	HasInsightsForMessage(ctx context.Context, userID, messageID string) (bool, error)

	// === Scan bookkeeping ===

	MarkScanned(ctx context.Context, accountID, folder string, uid uint32, at time.Time) error
	IsScanned(ctx context.Context, accountID, folder string, uid uint32) (bool, error)
}
