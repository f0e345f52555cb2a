// Package sync runs the insight pipeline over every stored mailbox
// account on a fixed schedule.
package sync

import (
	"context"
	"errors"
	"sort"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/finmail/internal/classifier"
	"github.com/nhle/finmail/internal/mailbox"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/store"
)

// ScanState represents the current state of an account scan.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanRunning
	ScanError
)

func (s ScanState) String() string {
	switch s {
	case ScanRunning:
		return "running"
	case ScanError:
		return "error"
	default:
		return "idle"
	}
}

// AccountStatus holds the scan state for a single account.
type AccountStatus struct {
	AccountID string
	Email     string
	State     ScanState
	LastScan  time.Time
	Error     error
}

// Result reports what one account scan did.
type Result struct {
	AccountID string
	Email     string

	// Scanned counts messages classified in this run.
	Scanned int

	// Skipped counts messages already scanned by an earlier run.
	Skipped int

	// Failed counts messages that could not be fetched or decoded.
	Failed int

	Insights []model.Insight
	Err      error
}

// Session is the part of a mailbox session the scanner drives.
type Session interface {
	ListPage(ctx context.Context, folder string, page, perPage int) (model.Page, error)
	Detail(ctx context.Context, seq uint32) (model.MessageDetail, error)
	Close() error
}

// Opener opens a logged-in session.
type Opener interface {
	Open(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error) {
	return f(ctx, creds, settings)
}

// FromManager opens sessions with a mailbox.Manager.
func FromManager(m *mailbox.Manager) Opener {
	return OpenerFunc(func(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (Session, error) {
		sess, err := m.Open(ctx, creds, settings)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

// AccountOpener decrypts a stored account.
type AccountOpener interface {
	OpenAccount(acct model.MailboxAccount) (model.Credentials, model.ServerSettings, error)
}

// Config configures a Scanner.
type Config struct {
	Store      store.Store
	Opener     Opener
	Vault      AccountOpener
	Classifier *classifier.Classifier
	Log        logrus.FieldLogger

	// Folder is scanned on every account. Empty means INBOX.
	Folder string

	// MaxMessages caps how many of the newest messages one scan reads.
	MaxMessages int

	// Interval between scheduled runs.
	Interval time.Duration

	// ScanTimeout bounds one account scan. Zero means no bound beyond
	// the session's per-command timeouts.
	ScanTimeout time.Duration

	Now func() time.Time
}

const (
	defaultMaxMessages = 100
	pageSize           = 50
)

// Scanner classifies new mail across all accounts, one account at a time.
type Scanner struct {
	store       store.Store
	opener      Opener
	vault       AccountOpener
	classifier  *classifier.Classifier
	log         logrus.FieldLogger
	folder      string
	maxMessages int
	interval    time.Duration
	scanTimeout time.Duration
	now         func() time.Time

	triggerCh chan struct{}

	mu       gosync.Mutex
	statuses map[string]*AccountStatus
	lastRun  time.Time
}

// New creates a Scanner from cfg, filling in defaults.
func New(cfg Config) *Scanner {
	s := &Scanner{
		store:       cfg.Store,
		opener:      cfg.Opener,
		vault:       cfg.Vault,
		classifier:  cfg.Classifier,
		log:         cfg.Log,
		folder:      cfg.Folder,
		maxMessages: cfg.MaxMessages,
		interval:    cfg.Interval,
		scanTimeout: cfg.ScanTimeout,
		now:         cfg.Now,
		triggerCh:   make(chan struct{}, 1),
		statuses:    make(map[string]*AccountStatus),
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.folder == "" {
		s.folder = mailbox.DefaultFolder
	}
	if s.maxMessages <= 0 {
		s.maxMessages = defaultMaxMessages
	}
	if s.interval <= 0 {
		s.interval = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.classifier == nil {
		s.classifier = classifier.New(classifier.Config{Log: s.log, Now: s.now})
	}
	return s
}

// Run scans immediately and then on every tick until ctx is cancelled.
// Trigger forces an extra scan between ticks.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("scanner started")
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.triggerCh:
			s.RunOnce(ctx)
		}
	}
}

// Trigger asks a running scanner for an immediate scan.
func (s *Scanner) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// A scan is already queued.
	}
}

// RunOnce scans every stored account in turn. A failing account is
// recorded in its status and does not stop the others.
func (s *Scanner) RunOnce(ctx context.Context) []Result {
	accounts, err := s.store.GetAllAccounts(ctx)
	if err != nil {
		s.log.WithError(err).Error("listing accounts")
		return nil
	}

	results := make([]Result, 0, len(accounts))
	for _, acct := range accounts {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.ScanAccount(ctx, acct))
	}

	s.mu.Lock()
	s.lastRun = s.now()
	s.mu.Unlock()
	return results
}

// ScanAccount runs the pipeline over one account's newest messages.
func (s *Scanner) ScanAccount(ctx context.Context, acct model.MailboxAccount) Result {
	log := s.log.WithFields(logrus.Fields{"account": acct.ID, "email": acct.Email})
	res := Result{AccountID: acct.ID, Email: acct.Email, Insights: []model.Insight{}}

	s.setStatus(acct, ScanRunning, nil)

	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	res.Err = s.scan(ctx, acct, &res, log)
	if res.Err != nil {
		s.setStatus(acct, ScanError, res.Err)
		if mailbox.IsUnsupportedProvider(res.Err) {
			log.WithError(res.Err).Error("account cannot be scanned")
		} else {
			log.WithError(res.Err).Warn("scan failed")
		}
		return res
	}

	if err := s.store.TouchAccount(ctx, acct.ID, s.now()); err != nil {
		log.WithError(err).Warn("recording last check")
	}
	s.setStatus(acct, ScanIdle, nil)
	log.WithFields(logrus.Fields{
		"scanned":  res.Scanned,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"insights": len(res.Insights),
	}).Info("scan complete")
	return res
}

func (s *Scanner) scan(ctx context.Context, acct model.MailboxAccount, res *Result, log logrus.FieldLogger) error {
	if _, err := mailbox.LookupProvider(acct.Provider); err != nil {
		return err
	}

	creds, settings, err := s.vault.OpenAccount(acct)
	if err != nil {
		return err
	}

	sess, err := s.opener.Open(ctx, creds, settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.WithError(err).Debug("closing session")
		}
	}()

	seen := 0
	for page := 1; seen < s.maxMessages; page++ {
		p, err := sess.ListPage(ctx, s.folder, page, pageSize)
		if err != nil {
			return err
		}

		for _, summary := range p.Messages {
			if seen >= s.maxMessages {
				break
			}
			seen++

			if err := s.scanMessage(ctx, acct, sess, summary, res); err != nil {
				if mailbox.IsConnectionError(err) || errors.Is(err, context.Canceled) {
					return err
				}
				res.Failed++
				log.WithError(err).WithField("uid", summary.UID).Warn("skipping message")
			}
		}

		if page >= p.TotalPages {
			break
		}
	}
	return nil
}

func (s *Scanner) scanMessage(
	ctx context.Context,
	acct model.MailboxAccount,
	sess Session,
	summary model.MessageSummary,
	res *Result,
) error {
	done, err := s.store.IsScanned(ctx, acct.ID, s.folder, summary.UID)
	if err != nil {
		return err
	}
	if done {
		res.Skipped++
		return nil
	}

	detail, err := sess.Detail(ctx, summary.SeqNum)
	if err != nil {
		return err
	}

	insights := s.classifier.Classify(detail)
	if len(insights) > 0 {
		key := model.MessageKey(acct.ID, s.folder, detail.UID)
		saved, err := s.store.SaveInsights(ctx, acct.UserID, key, insights)
		if err != nil {
			return err
		}
		res.Insights = append(res.Insights, saved...)
	}

	res.Scanned++
	return s.store.MarkScanned(ctx, acct.ID, s.folder, summary.UID, s.now())
}

// Statuses returns the scan status of every account seen so far, sorted
// by email address.
func (s *Scanner) Statuses() []AccountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]AccountStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		statuses = append(statuses, *st)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Email < statuses[j].Email
	})
	return statuses
}

// LastRun is when RunOnce last finished.
func (s *Scanner) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Scanner) setStatus(acct model.MailboxAccount, state ScanState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[acct.ID]
	if !ok {
		st = &AccountStatus{AccountID: acct.ID, Email: acct.Email}
		s.statuses[acct.ID] = st
	}

	st.State = state
	st.Error = err
	if state == ScanIdle && err == nil {
		st.LastScan = s.now()
	}
}
