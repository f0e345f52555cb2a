package app

import (
	"context"

	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/model"
)

// Folders lists the mailbox folders of the account named by ref.
func (a *App) Folders(ctx context.Context, ref string) ([]string, error) {
	var folders []string
	err := a.withSession(ctx, ref, func(_ model.MailboxAccount, sess Session) error {
		var err error
		folders, err = sess.Folders(ctx)
		return err
	})
	return folders, err
}

// ListMessages returns one newest-first page of folder. perPage <= 0
// uses the configured page size.
func (a *App) ListMessages(ctx context.Context, ref, folder string, page, perPage int) (model.Page, error) {
	if perPage <= 0 {
		perPage = a.cfg.IMAP.PageSize
	}

	var result model.Page
	err := a.withSession(ctx, ref, func(_ model.MailboxAccount, sess Session) error {
		var err error
		result, err = sess.ListPage(ctx, folder, page, perPage)
		return err
	})
	return result, err
}

// ShowMessage fetches one message by UID.
func (a *App) ShowMessage(ctx context.Context, ref, folder string, uid uint32) (model.MessageDetail, error) {
	var detail model.MessageDetail
	err := a.withSession(ctx, ref, func(_ model.MailboxAccount, sess Session) error {
		var err error
		detail, err = sess.DetailByUID(ctx, folder, uid)
		return err
	})
	return detail, err
}

// Analysis is the outcome of classifying one message.
type Analysis struct {
	Message  model.MessageDetail
	Insights []model.Insight

	// Saved is false when the message already had stored insights or
	// saving was not requested.
	Saved bool
}

// Analyze classifies one message by UID. With save set, new insights are
// stored unless the message already has some.
func (a *App) Analyze(ctx context.Context, ref, folder string, uid uint32, save bool) (Analysis, error) {
	var out Analysis
	err := a.withSession(ctx, ref, func(acct model.MailboxAccount, sess Session) error {
		detail, err := sess.DetailByUID(ctx, folder, uid)
		if err != nil {
			return err
		}
		out.Message = detail
		out.Insights = a.classifier.Classify(detail)

		if !save || len(out.Insights) == 0 {
			return nil
		}

		if folder == "" {
			folder = mailbox.DefaultFolder
		}
		messageID := model.MessageKey(acct.ID, folder, detail.UID)
		exists, err := a.store.HasInsightsForMessage(ctx, acct.UserID, messageID)
		if err != nil || exists {
			return err
		}

		saved, err := a.store.SaveInsights(ctx, acct.UserID, messageID, out.Insights)
		if err != nil {
			return err
		}
		out.Insights, out.Saved = saved, true
		return nil
	})
	return out, err
}
