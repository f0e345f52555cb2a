// Package mailbox opens IMAP sessions against the supported providers and
// reads folders newest-first, one page at a time.
//
// Sequence numbers handed out by a Session are only valid while that
// session stays open. Callers that need to come back to a message later
// must keep its UID and use DetailByUID.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/pagination"
)

const (
	// DefaultTimeout bounds dialing, each command and logout.
	DefaultTimeout = 5 * time.Second

	// DefaultFolder is selected when none is given.
	DefaultFolder = "INBOX"
)

// Config configures a Manager.
type Config struct {
	Timeout time.Duration
	PerPage int
	Log     logrus.FieldLogger
}

// Manager opens sessions.
type Manager struct {
	timeout time.Duration
	perPage int
	log     logrus.FieldLogger
	dial    dialFunc
}

// NewManager creates a Manager from cfg, filling in defaults.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		timeout: cfg.Timeout,
		perPage: cfg.PerPage,
		log:     cfg.Log,
		dial:    dialTLS,
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.perPage <= 0 {
		m.perPage = pagination.DefaultPerPage
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	return m
}

// Open connects and logs in. The caller must Close the session.
func (m *Manager) Open(ctx context.Context, creds model.Credentials, settings model.ServerSettings) (*Session, error) {
	log := m.log.WithFields(logrus.Fields{"host": settings.Host, "email": creds.Email})

	conn, err := m.dial(ctx, settings, m.timeout)
	if err != nil {
		log.WithError(err).Warn("dial failed")
		return nil, err
	}

	if err := conn.Login(ctx, creds.Email, creds.Password); err != nil {
		_ = conn.Close()
		log.WithError(err).Warn("login failed")
		return nil, err
	}

	log.Debug("session opened")
	return &Session{
		conn:    conn,
		timeout: m.timeout,
		perPage: m.perPage,
		log:     log,
	}, nil
}

// AccountSealer encrypts an account's credentials and server settings.
type AccountSealer interface {
	SealAccount(acct *model.MailboxAccount, creds model.Credentials, settings model.ServerSettings) error
}

// Connect verifies that creds can log in to provider and open INBOX,
// then returns a sealed account record ready to be stored.
func (m *Manager) Connect(
	ctx context.Context,
	userID, provider string,
	creds model.Credentials,
	sealer AccountSealer,
) (model.MailboxAccount, error) {
	settings, err := LookupProvider(provider)
	if err != nil {
		return model.MailboxAccount{}, err
	}

	sess, err := m.Open(ctx, creds, settings)
	if err != nil {
		return model.MailboxAccount{}, err
	}
	defer func() { _ = sess.Close() }()

	if _, err := sess.SelectFolder(ctx, DefaultFolder); err != nil {
		return model.MailboxAccount{}, err
	}

	acct := model.MailboxAccount{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     creds.Email,
		Provider:  strings.ToLower(strings.TrimSpace(provider)),
		CreatedAt: time.Now().UTC(),
	}
	if err := sealer.SealAccount(&acct, creds, settings); err != nil {
		return model.MailboxAccount{}, fmt.Errorf("sealing account: %w", err)
	}
	return acct, nil
}

// Session is one open, logged-in IMAP connection. It is not safe for
// concurrent use.
type Session struct {
	conn    imapConn
	timeout time.Duration
	perPage int
	log     logrus.FieldLogger

	folder string
	count  uint32
	closed bool
}

// SelectFolder opens folder read-only and returns its message count.
func (s *Session) SelectFolder(ctx context.Context, folder string) (uint32, error) {
	if folder == "" {
		folder = DefaultFolder
	}

	count, err := s.conn.Select(ctx, folder)
	if err != nil {
		s.folder = ""
		if IsConnectionError(err) {
			return 0, err
		}
		return 0, &FolderError{Folder: folder, Err: err}
	}

	s.folder, s.count = folder, count
	return count, nil
}

// ListPage returns one newest-first page of folder. Messages that fail
// to decode are logged and left out. A folder that cannot be opened
// yields a well-formed empty page with Error set, alongside the error.
func (s *Session) ListPage(ctx context.Context, folder string, page, perPage int) (model.Page, error) {
	p := pagination.Normalize(page, perPage, pagination.WithDefaultPerPage(s.perPage))
	result := model.Page{
		Messages: []model.MessageSummary{},
		Page:     p.Page,
		PerPage:  p.PerPage,
	}

	count, err := s.SelectFolder(ctx, folder)
	if err != nil {
		if IsFolderError(err) {
			result.Error = err.Error()
		}
		return result, err
	}

	result.Total = int(count)
	result.TotalPages = pagination.TotalPages(count, p.PerPage)

	window, ok := pagination.Reverse(count, p)
	if !ok {
		return result, nil
	}

	for _, seq := range window.Descending() {
		summary, err := s.Summary(ctx, seq)
		if err != nil {
			if IsConnectionError(err) {
				return result, err
			}
			s.log.WithError(err).WithField("seq", seq).Warn("skipping message")
			continue
		}
		result.Messages = append(result.Messages, summary)
	}
	return result, nil
}

// previewBytes bounds the body prefix fetched for a list preview.
const previewBytes = 4096

func summaryOptions() *imap.FetchOptions {
	return &imap.FetchOptions{
		Envelope:      true,
		Flags:         true,
		UID:           true,
		InternalDate:  true,
		RFC822Size:    true,
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
	}
}

// Summary fetches the list-view projection of the message at seq in the
// selected folder, including a short text preview.
func (s *Session) Summary(ctx context.Context, seq uint32) (model.MessageSummary, error) {
	f, err := s.conn.Fetch(ctx, seq, summaryOptions())
	if err != nil {
		return model.MessageSummary{}, s.messageError(seq, err)
	}

	if path, _, ok := decode.PreviewPart(f.Structure); ok {
		section := &imap.FetchItemBodySection{
			Part:    decode.SectionPath(path),
			Peek:    true,
			Partial: &imap.SectionPartial{Size: previewBytes},
		}
		withPreview, err := s.conn.Fetch(ctx, seq, &imap.FetchOptions{
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{section},
		})
		switch {
		case err == nil:
			f.Preview = withPreview.Preview
		case IsConnectionError(err):
			return model.MessageSummary{}, err
		default:
			s.log.WithError(err).WithField("seq", seq).Debug("preview unavailable")
		}
	}

	summary, err := decode.Summary(f, decode.PreviewText(f))
	if err != nil {
		return model.MessageSummary{}, &DecodeError{SeqNum: seq, Err: err}
	}
	return summary, nil
}

// Detail fetches and fully decodes the message at seq in the selected
// folder.
func (s *Session) Detail(ctx context.Context, seq uint32) (model.MessageDetail, error) {
	opts := summaryOptions()
	opts.BodySection = []*imap.FetchItemBodySection{{Peek: true}}

	f, err := s.conn.Fetch(ctx, seq, opts)
	if err != nil {
		return model.MessageDetail{}, s.messageError(seq, err)
	}

	detail, err := decode.Detail(f)
	if err != nil {
		return model.MessageDetail{}, &DecodeError{SeqNum: seq, Err: err}
	}
	return detail, nil
}

// DetailByUID resolves uid to its current sequence number in folder and
// fetches the message. The mapping is looked up on every call.
func (s *Session) DetailByUID(ctx context.Context, folder string, uid uint32) (model.MessageDetail, error) {
	if folder == "" {
		folder = DefaultFolder
	}
	if s.folder != folder {
		if _, err := s.SelectFolder(ctx, folder); err != nil {
			return model.MessageDetail{}, err
		}
	}

	seq, err := s.conn.SearchUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return model.MessageDetail{}, fmt.Errorf("uid %d in %s: %w", uid, folder, ErrMessageNotFound)
		}
		return model.MessageDetail{}, err
	}
	return s.Detail(ctx, seq)
}

// Folders lists every mailbox name on the server.
func (s *Session) Folders(ctx context.Context) ([]string, error) {
	return s.conn.List(ctx)
}

// Count is the message count of the selected folder as of selection.
func (s *Session) Count() uint32 {
	return s.count
}

// Close logs out, bounded by the session timeout, and releases the
// connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.conn.Logout(ctx)
	_ = s.conn.Close()
	if err != nil {
		s.log.WithError(err).Debug("logout failed")
	}
	return err
}

func (s *Session) messageError(seq uint32, err error) error {
	if IsConnectionError(err) {
		return err
	}
	return &DecodeError{SeqNum: seq, Err: err}
}
