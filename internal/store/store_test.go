package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/finmail/internal/model"
)

// newTestStore creates an in-memory SQLiteStore with all migrations
// applied. It is closed when the test completes.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err, "creating test store")

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

func testAccount(id, userID, email string) model.MailboxAccount {
	return model.MailboxAccount{
		ID:             id,
		UserID:         userID,
		Email:          email,
		Provider:       model.ProviderGmail,
		Credentials:    "v1:sealed-creds",
		ServerSettings: "v1:sealed-settings",
		CreatedAt:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func billInsight(amount string, due model.Date) model.Insight {
	return model.Insight{
		Type:        model.InsightBillDue,
		Description: "Bill or payment due",
		Amount:      model.Ptr(model.MustMoney(amount)),
		Date:        model.Ptr(due),
		Source:      model.InsightSource{EmailSubject: "Your bill", From: "billing@electric.example"},
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := newTestStore(t)

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestReopenDoesNotReapplyMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finmail.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateAccount(context.Background(), testAccount("a1", "u1", "me@example.com")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	accounts, err := s.GetAllAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateAccount(ctx, testAccount("a1", "u1", "me@example.com")))
	require.NoError(t, s.CreateAccount(ctx, testAccount("a2", "u2", "other@example.com")))

	got, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)
	assert.Equal(t, "v1:sealed-creds", got.Credentials)
	assert.Nil(t, got.LastChecked)

	mine, err := s.GetAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a1", mine[0].ID)

	all, err := s.GetAllAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	checked := time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.TouchAccount(ctx, "a1", checked))
	got, err = s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got.LastChecked)
	assert.True(t, checked.Equal(*got.LastChecked))

	require.NoError(t, s.RemoveAccount(ctx, "a1"))
	_, err = s.GetAccount(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RemoveAccount(ctx, "a1"), ErrNotFound)
	assert.ErrorIs(t, s.TouchAccount(ctx, "a1", checked), ErrNotFound)
}

func TestCreateAccountRejectsUnsealed(t *testing.T) {
	acct := testAccount("a1", "u1", "me@example.com")
	acct.Credentials = ""

	err := newTestStore(t).CreateAccount(context.Background(), acct)
	assert.Error(t, err)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateAccount(ctx, testAccount("a1", "u1", "me@example.com")))
	assert.Error(t, s.CreateAccount(ctx, testAccount("a2", "u1", "me@example.com")))
}

func TestSaveInsightsFillsDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.SaveInsights(ctx, "u1", "1042", []model.Insight{
		billInsight("45.99", "2024-03-15"),
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	in := saved[0]
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, model.StatusNew, in.Status)
	assert.Equal(t, "u1", in.UserID)
	assert.Equal(t, "1042", in.MessageID)
	assert.False(t, in.CreatedAt.IsZero())

	got, err := s.QueryInsights(ctx, "u1", InsightFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.ID, got[0].ID)
	assert.Equal(t, model.InsightBillDue, got[0].Type)
	require.NotNil(t, got[0].Amount)
	assert.Equal(t, "45.99", got[0].Amount.String())
	require.NotNil(t, got[0].Date)
	assert.Equal(t, model.Date("2024-03-15"), *got[0].Date)
	assert.Equal(t, "Your bill", got[0].Source.EmailSubject)
	assert.Nil(t, got[0].OldAmount)
	assert.Nil(t, got[0].Percentage)
}

func TestSaveInsightsRoundTripsTypeSpecificFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	price := model.Insight{
		Type:        model.InsightPriceIncrease,
		Description: "Price increase detected",
		OldAmount:   model.Ptr(model.MustMoney("9.99")),
		NewAmount:   model.Ptr(model.MustMoney("12.99")),
		Percentage:  model.Ptr(30.03),
		Date:        model.Ptr(model.Date("2024-05-01")),
	}
	invest := model.Insight{
		Type:              model.InsightInvestmentUpdate,
		Description:       "Investment update",
		PerformanceChange: model.Ptr(-3.5),
		TotalValue:        model.Ptr(model.MustMoney("10250.00")),
	}

	_, err := s.SaveInsights(ctx, "u1", "7", []model.Insight{price, invest})
	require.NoError(t, err)

	got, err := s.QueryInsights(ctx, "u1", InsightFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Same batch: extraction order is kept.
	assert.Equal(t, model.InsightPriceIncrease, got[0].Type)
	assert.Equal(t, "9.99", got[0].OldAmount.String())
	assert.Equal(t, "12.99", got[0].NewAmount.String())
	assert.InDelta(t, 30.03, *got[0].Percentage, 0.0001)

	assert.Equal(t, model.InsightInvestmentUpdate, got[1].Type)
	assert.InDelta(t, -3.5, *got[1].PerformanceChange, 0.0001)
	assert.Equal(t, "10250.00", got[1].TotalValue.String())
	assert.Nil(t, got[1].Date)
}

func TestSaveInsightsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := billInsight("10.00", "2024-01-01")
	bad.Percentage = model.Ptr(5.0)

	_, err := s.SaveInsights(ctx, "u1", "1", []model.Insight{billInsight("1.00", "2024-01-01"), bad})
	require.Error(t, err)

	got, err := s.QueryInsights(ctx, "u1", InsightFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveInsightsEmpty(t *testing.T) {
	saved, err := newTestStore(t).SaveInsights(context.Background(), "u1", "1", nil)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestQueryInsightsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	older := billInsight("20.00", "2024-02-01")
	older.CreatedAt = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	newer := billInsight("30.00", "2024-03-01")
	newer.CreatedAt = time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	renewal := model.Insight{
		Type:        model.InsightSubscriptionRenewal,
		Description: "Subscription renewal",
		CreatedAt:   time.Date(2024, 2, 11, 8, 0, 0, 0, time.UTC),
	}

	_, err := s.SaveInsights(ctx, "u1", "1", []model.Insight{older})
	require.NoError(t, err)
	_, err = s.SaveInsights(ctx, "u1", "2", []model.Insight{newer})
	require.NoError(t, err)
	_, err = s.SaveInsights(ctx, "u1", "3", []model.Insight{renewal})
	require.NoError(t, err)
	_, err = s.SaveInsights(ctx, "u2", "1", []model.Insight{billInsight("99.00", "2024-01-01")})
	require.NoError(t, err)

	all, err := s.QueryInsights(ctx, "u1", InsightFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, model.InsightSubscriptionRenewal, all[0].Type, "newest first")
	assert.Equal(t, "20.00", all[2].Amount.String())

	bill := model.InsightBillDue
	bills, err := s.QueryInsights(ctx, "u1", InsightFilter{Type: &bill})
	require.NoError(t, err)
	assert.Len(t, bills, 2)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 10, 23, 59, 59, 0, time.UTC)
	ranged, err := s.QueryInsights(ctx, "u1", InsightFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "30.00", ranged[0].Amount.String())

	limited, err := s.QueryInsights(ctx, "u1", InsightFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.UpdateInsightStatus(ctx, "u1", all[1].ID, model.StatusPaid))
	paid := model.StatusPaid
	paidOnly, err := s.QueryInsights(ctx, "u1", InsightFilter{Status: &paid})
	require.NoError(t, err)
	require.Len(t, paidOnly, 1)
	assert.Equal(t, all[1].ID, paidOnly[0].ID)
}

func TestUpdateInsightStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.SaveInsights(ctx, "u1", "1", []model.Insight{billInsight("5.00", "2024-01-01")})
	require.NoError(t, err)

	assert.Error(t, s.UpdateInsightStatus(ctx, "u1", saved[0].ID, "archived"))
	assert.ErrorIs(t, s.UpdateInsightStatus(ctx, "u1", "missing", model.StatusPaid), ErrNotFound)
	assert.ErrorIs(t, s.UpdateInsightStatus(ctx, "u2", saved[0].ID, model.StatusPaid), ErrNotFound)
	require.NoError(t, s.UpdateInsightStatus(ctx, "u1", saved[0].ID, model.StatusOverdue))

	got, err := s.QueryInsights(ctx, "u1", InsightFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, got[0].Status)
}

func TestHasInsightsForMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	has, err := s.HasInsightsForMessage(ctx, "u1", "1042")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.SaveInsights(ctx, "u1", "1042", []model.Insight{billInsight("5.00", "2024-01-01")})
	require.NoError(t, err)

	has, err = s.HasInsightsForMessage(ctx, "u1", "1042")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasInsightsForMessage(ctx, "u2", "1042")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestScannedMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateAccount(ctx, testAccount("a1", "u1", "me@example.com")))
	require.NoError(t, s.CreateAccount(ctx, testAccount("a2", "u1", "other@example.com")))

	scanned, err := s.IsScanned(ctx, "a1", "INBOX", 1001)
	require.NoError(t, err)
	assert.False(t, scanned)

	now := time.Now()
	require.NoError(t, s.MarkScanned(ctx, "a1", "INBOX", 1001, now))
	require.NoError(t, s.MarkScanned(ctx, "a1", "INBOX", 1001, now.Add(time.Hour)))

	scanned, err = s.IsScanned(ctx, "a1", "INBOX", 1001)
	require.NoError(t, err)
	assert.True(t, scanned)

	// The same UID elsewhere is a different message.
	scanned, err = s.IsScanned(ctx, "a1", "Archive", 1001)
	require.NoError(t, err)
	assert.False(t, scanned)
	scanned, err = s.IsScanned(ctx, "a2", "INBOX", 1001)
	require.NoError(t, err)
	assert.False(t, scanned)

	// Removing the account forgets its scan history.
	require.NoError(t, s.RemoveAccount(ctx, "a1"))
	scanned, err = s.IsScanned(ctx, "a1", "INBOX", 1001)
	require.NoError(t, err)
	assert.False(t, scanned)
}

func TestScannedMessagesSurviveFolderUpgrade(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finmail.db")

	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	for _, m := range migrations[:3] {
		_, err := db.Exec(m.sql)
		require.NoError(t, err, "migration v%d", m.version)
	}
	_, err = db.Exec(`INSERT INTO accounts (id, user_id, email_address, provider, credentials, server_settings)
		VALUES ('a1', 'u1', 'me@example.com', 'gmail', 'v1:c', 'v1:s')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO scanned_messages (account_id, uid, scanned_at) VALUES ('a1', 1001, ?)`, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 4, version)

	scanned, err := s.IsScanned(ctx, "a1", "INBOX", 1001)
	require.NoError(t, err)
	assert.True(t, scanned)

	require.NoError(t, s.RemoveAccount(ctx, "a1"))
	scanned, err = s.IsScanned(ctx, "a1", "INBOX", 1001)
	require.NoError(t, err)
	assert.False(t, scanned, "cascade still applies after the table rebuild")
}
