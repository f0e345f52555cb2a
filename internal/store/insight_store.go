package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/finmail/internal/model"
)

const insightColumns = `id, user_id, message_id, insight_type, description,
	amount_cents, old_amount_cents, new_amount_cents, percentage,
	performance_change, total_value_cents, insight_date, status,
	source_subject, source_from, created_at`

// insightRow mirrors the insights table.
type insightRow struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	MessageID         string          `db:"message_id"`
	Type              string          `db:"insight_type"`
	Description       string          `db:"description"`
	Amount            sql.NullInt64   `db:"amount_cents"`
	OldAmount         sql.NullInt64   `db:"old_amount_cents"`
	NewAmount         sql.NullInt64   `db:"new_amount_cents"`
	Percentage        sql.NullFloat64 `db:"percentage"`
	PerformanceChange sql.NullFloat64 `db:"performance_change"`
	TotalValue        sql.NullInt64   `db:"total_value_cents"`
	Date              sql.NullString  `db:"insight_date"`
	Status            string          `db:"status"`
	SourceSubject     string          `db:"source_subject"`
	SourceFrom        string          `db:"source_from"`
	CreatedAt         time.Time       `db:"created_at"`
}

func (r insightRow) toModel() model.Insight {
	in := model.Insight{
		ID:          r.ID,
		UserID:      r.UserID,
		MessageID:   r.MessageID,
		Type:        model.InsightType(r.Type),
		Description: r.Description,
		Status:      model.InsightStatus(r.Status),
		Source: model.InsightSource{
			EmailSubject: r.SourceSubject,
			From:         r.SourceFrom,
		},
		CreatedAt: r.CreatedAt,
	}
	in.Amount = moneyOf(r.Amount)
	in.OldAmount = moneyOf(r.OldAmount)
	in.NewAmount = moneyOf(r.NewAmount)
	in.TotalValue = moneyOf(r.TotalValue)
	if r.Percentage.Valid {
		in.Percentage = model.Ptr(r.Percentage.Float64)
	}
	if r.PerformanceChange.Valid {
		in.PerformanceChange = model.Ptr(r.PerformanceChange.Float64)
	}
	if r.Date.Valid && r.Date.String != "" {
		in.Date = model.Ptr(model.Date(r.Date.String))
	}
	return in
}

func moneyOf(n sql.NullInt64) *model.Money {
	if !n.Valid {
		return nil
	}
	return model.Ptr(model.Money(n.Int64))
}

func moneyArg(m *model.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	v := int64(*m)
	return nullInt64(&v)
}

func dateArg(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*d), Valid: true}
}

// SaveInsights stores the insights extracted from one message in a
// single transaction and returns them with ids, status and created_at
// filled in. Nothing is written if any insight is invalid.
func (s *SQLiteStore) SaveInsights(
	ctx context.Context,
	userID, messageID string,
	insights []model.Insight,
) ([]model.Insight, error) {
	if len(insights) == 0 {
		return []model.Insight{}, nil
	}

	now := time.Now().UTC()
	saved := make([]model.Insight, len(insights))
	for i, in := range insights {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("saving insights for message %s: %w", messageID, err)
		}
		if in.ID == "" {
			in.ID = uuid.New().String()
		}
		if in.Status == "" {
			in.Status = model.StatusNew
		}
		if in.CreatedAt.IsZero() {
			in.CreatedAt = now
		}
		in.UserID, in.MessageID = userID, messageID
		saved[i] = in
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO insights (`+insightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insight insert: %w", err)
	}
	defer stmt.Close()

	for _, in := range saved {
		_, err := stmt.ExecContext(ctx,
			in.ID, in.UserID, in.MessageID, string(in.Type), in.Description,
			moneyArg(in.Amount), moneyArg(in.OldAmount), moneyArg(in.NewAmount),
			nullFloat64(in.Percentage), nullFloat64(in.PerformanceChange),
			moneyArg(in.TotalValue), dateArg(in.Date), string(in.Status),
			in.Source.EmailSubject, in.Source.From, in.CreatedAt.UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting insight %s: %w", in.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing insights: %w", err)
	}
	return saved, nil
}

// QueryInsights returns userID's insights matching filter, newest first.
// Insights created in the same batch keep their extraction order.
func (s *SQLiteStore) QueryInsights(
	ctx context.Context,
	userID string,
	filter InsightFilter,
) ([]model.Insight, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Type != nil {
		conditions = append(conditions, "insight_type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.DateTo.UTC())
	}

	query := "SELECT " + insightColumns + " FROM insights WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY created_at DESC, rowid ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []insightRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying insights: %w", err)
	}

	insights := make([]model.Insight, 0, len(rows))
	for _, r := range rows {
		insights = append(insights, r.toModel())
	}
	return insights, nil
}

// UpdateInsightStatus moves one of the user's insights to a new status.
// Another user's insight is reported as not found.
func (s *SQLiteStore) UpdateInsightStatus(ctx context.Context, userID, id string, status model.InsightStatus) error {
	if !status.Valid() {
		return fmt.Errorf("updating insight %s: unknown status %q", id, status)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE insights SET status = ? WHERE id = ? AND user_id = ?", string(status), id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating insight %s: %w", id, err)
	}
	return checkAffected(res, "updating insight", id)
}

// HasInsightsForMessage reports whether any insight was already stored
// for the message.
func (s *SQLiteStore) HasInsightsForMessage(ctx context.Context, userID, messageID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM insights WHERE user_id = ? AND message_id = ?",
		userID, messageID,
	)
	if err != nil {
		return false, fmt.Errorf("checking insights for message %s: %w", messageID, err)
	}
	return n > 0, nil
}
