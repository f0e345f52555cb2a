package app

import (
	"context"
	"fmt"

	"github.com/nhle/finmail/internal/model"
)

// Connect checks the credentials against the provider, seals them and
// stores the new account.
func (a *App) Connect(ctx context.Context, provider, email, password string) (model.MailboxAccount, error) {
	if a.connector == nil {
		return model.MailboxAccount{}, fmt.Errorf("mailbox access is not configured")
	}

	creds := model.Credentials{Email: email, Password: password}
	acct, err := a.connector.Connect(ctx, a.cfg.UserID, provider, creds, a.vault)
	if err != nil {
		return model.MailboxAccount{}, err
	}

	if err := a.store.CreateAccount(ctx, acct); err != nil {
		return model.MailboxAccount{}, err
	}

	a.log.WithField("email", acct.Email).WithField("provider", acct.Provider).Info("account connected")
	return acct, nil
}

// Accounts lists the user's connected accounts.
func (a *App) Accounts(ctx context.Context) ([]model.MailboxAccount, error) {
	return a.store.GetAccounts(ctx, a.cfg.UserID)
}

// RemoveAccount disconnects the account named by ref (id or email).
func (a *App) RemoveAccount(ctx context.Context, ref string) (model.MailboxAccount, error) {
	acct, err := a.account(ctx, ref)
	if err != nil {
		return model.MailboxAccount{}, err
	}
	if err := a.store.RemoveAccount(ctx, acct.ID); err != nil {
		return model.MailboxAccount{}, err
	}
	return acct, nil
}
