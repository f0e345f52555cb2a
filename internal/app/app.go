// Package app ties the mailbox, classifier, store and export packages
// together into the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/finmail/internal/classifier"
	"github.com/nhle/finmail/internal/credential"
	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/store"
	appsync "github.com/nhle/finmail/internal/sync"
)

// ErrNoAccount is returned when an operation needs a mailbox account and
// none matches.
var ErrNoAccount = errors.New("no matching account")

// ErrAmbiguousAccount is returned when no account was named and more than
// one is connected.
var ErrAmbiguousAccount = errors.New("several accounts connected; choose one with --account")

// Session is the part of a mailbox session the app uses.
type Session interface {
	Folders(ctx context.Context) ([]string, error)
	ListPage(ctx context.Context, folder string, page, perPage int) (model.Page, error)
	DetailByUID(ctx context.Context, folder string, uid uint32) (model.MessageDetail, error)
	Close() error
}

// OpenFunc opens a logged-in session.
type OpenFunc func(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error)

// Connector verifies new credentials and produces a sealed account.
type Connector interface {
	Connect(
		ctx context.Context,
		userID, provider string,
		creds model.Credentials,
		sealer mailbox.AccountSealer,
	) (model.MailboxAccount, error)
}

// Options configures an App.
type Options struct {
	Config     *model.AppConfig
	Store      store.Store
	Vault      *credential.Vault
	Mailbox    *mailbox.Manager
	Classifier *classifier.Classifier
	Log        logrus.FieldLogger

	// Open and Connector default to Mailbox.
	Open      OpenFunc
	Connector Connector

	Now func() time.Time
}

// App runs the pipeline for the configured user.
type App struct {
	cfg        *model.AppConfig
	store      store.Store
	vault      *credential.Vault
	mailbox    *mailbox.Manager
	classifier *classifier.Classifier
	log        logrus.FieldLogger
	open       OpenFunc
	connector  Connector
	now        func() time.Time
}

// New creates an App from opts.
func New(opts Options) *App {
	a := &App{
		cfg:        opts.Config,
		store:      opts.Store,
		vault:      opts.Vault,
		mailbox:    opts.Mailbox,
		classifier: opts.Classifier,
		log:        opts.Log,
		open:       opts.Open,
		connector:  opts.Connector,
		now:        opts.Now,
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.cfg == nil {
		a.cfg = model.DefaultConfig()
	}
	if a.classifier == nil {
		a.classifier = classifier.New(classifier.Config{
			Debug: a.cfg.Classifier.Debug,
			Log:   a.log,
			Now:   a.now,
		})
	}
	if a.open == nil && a.mailbox != nil {
		m := a.mailbox
		a.open = func(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error) {
			sess, err := m.Open(ctx, creds, settings)
			if err != nil {
				return nil, err
			}
			return sess, nil
		}
	}
	if a.connector == nil && a.mailbox != nil {
		a.connector = a.mailbox
	}
	return a
}

// UserID is the owner of every account and insight this app touches.
func (a *App) UserID() string {
	return a.cfg.UserID
}

// Config returns the active configuration.
func (a *App) Config() *model.AppConfig {
	return a.cfg
}

// Scanner builds a scheduled scanner over all stored accounts.
func (a *App) Scanner() (*appsync.Scanner, error) {
	interval, err := a.cfg.Scan.Interval()
	if err != nil {
		return nil, err
	}

	opener := appsync.OpenerFunc(func(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (appsync.Session, error) {
		sess, err := a.open(ctx, creds, settings)
		if err != nil {
			return nil, err
		}
		scan, ok := sess.(appsync.Session)
		if !ok {
			sess.Close()
			return nil, fmt.Errorf("session type %T cannot be scanned", sess)
		}
		return scan, nil
	})

	return appsync.New(appsync.Config{
		Store:       a.store,
		Opener:      opener,
		Vault:       a.vault,
		Classifier:  a.classifier,
		Log:         a.log,
		Folder:      a.cfg.Scan.Folder,
		MaxMessages: a.cfg.Scan.MaxMessages,
		Interval:    interval,
		Now:         a.now,
	}), nil
}

// account resolves ref to one of the user's accounts: by id, then by
// email address. An empty ref picks the only connected account.
func (a *App) account(ctx context.Context, ref string) (model.MailboxAccount, error) {
	accounts, err := a.store.GetAccounts(ctx, a.cfg.UserID)
	if err != nil {
		return model.MailboxAccount{}, err
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		switch len(accounts) {
		case 0:
			return model.MailboxAccount{}, fmt.Errorf("%w; connect one first", ErrNoAccount)
		case 1:
			return accounts[0], nil
		default:
			return model.MailboxAccount{}, ErrAmbiguousAccount
		}
	}

	for _, acct := range accounts {
		if acct.ID == ref {
			return acct, nil
		}
	}
	for _, acct := range accounts {
		if strings.EqualFold(acct.Email, ref) {
			return acct, nil
		}
	}
	return model.MailboxAccount{}, fmt.Errorf("%w: %s", ErrNoAccount, ref)
}

// withSession opens a session on the account named by ref, runs fn and
// always closes the session.
func (a *App) withSession(ctx context.Context, ref string, fn func(acct model.MailboxAccount, sess Session) error) error {
	if a.open == nil {
		return errors.New("mailbox access is not configured")
	}

	acct, err := a.account(ctx, ref)
	if err != nil {
		return err
	}

	creds, settings, err := a.vault.OpenAccount(acct)
	if err != nil {
		return fmt.Errorf("unsealing %s: %w", acct.Email, err)
	}

	sess, err := a.open(ctx, creds, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			a.log.WithError(err).Debug("closing session")
		}
	}()

	return fn(acct, sess)
}
