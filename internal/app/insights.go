package app

import (
	"context"
	"io"

	"github.com/nhle/finmail/internal/export"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/store"
)

// Insights queries the user's stored insights, newest first.
func (a *App) Insights(ctx context.Context, filter store.InsightFilter) ([]model.Insight, error) {
	return a.store.QueryInsights(ctx, a.cfg.UserID, filter)
}

// SetInsightStatus records what the user did about an insight.
func (a *App) SetInsightStatus(ctx context.Context, id string, status model.InsightStatus) error {
	return a.store.UpdateInsightStatus(ctx, a.cfg.UserID, id, status)
}

// Summary aggregates the user's bills as of now.
func (a *App) Summary(ctx context.Context, filter store.InsightFilter) (export.Totals, error) {
	insights, err := a.Insights(ctx, filter)
	if err != nil {
		return export.Totals{}, err
	}
	return export.Summary(insights, a.now()), nil
}

// Export writes the user's insights matching filter in format.
func (a *App) Export(ctx context.Context, w io.Writer, format export.Format, filter store.InsightFilter) error {
	insights, err := a.Insights(ctx, filter)
	if err != nil {
		return err
	}

	return export.Write(w, format, insights, export.ReportOptions{
		Owner:    a.cfg.UserID,
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
		Now:      a.now(),
	})
}
