package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
)

type fakeMessage struct {
	uid     uint32
	subject string
	body    string
}

// fakeConn serves folders of plain-text messages. Sequence numbers are
// positions in the folder slice, starting at 1.
type fakeConn struct {
	folders   map[string][]fakeMessage
	selected  string
	loginErr  error
	fetchErrs map[uint32]error

	searches int
	logouts  int
	closed   bool
	previews []*imap.FetchItemBodySection
}

func newFakeConn(folder string, n int) *fakeConn {
	msgs := make([]fakeMessage, n)
	for i := range msgs {
		msgs[i] = fakeMessage{
			uid:     uint32(1000 + i + 1),
			subject: fmt.Sprintf("Message %d", i+1),
			body:    fmt.Sprintf("Body of message %d", i+1),
		}
	}
	return &fakeConn{
		folders:   map[string][]fakeMessage{folder: msgs},
		fetchErrs: map[uint32]error{},
	}
}

func (c *fakeConn) Login(_ context.Context, _, _ string) error { return c.loginErr }

func (c *fakeConn) Select(_ context.Context, folder string) (uint32, error) {
	msgs, ok := c.folders[folder]
	if !ok {
		return 0, &imap.Error{Type: imap.StatusResponseTypeNo, Text: "Mailbox doesn't exist"}
	}
	c.selected = folder
	return uint32(len(msgs)), nil
}

func (c *fakeConn) List(context.Context) ([]string, error) {
	var names []string
	for name := range c.folders {
		names = append(names, name)
	}
	return names, nil
}

func (c *fakeConn) Fetch(_ context.Context, seq uint32, opts *imap.FetchOptions) (decode.Fetched, error) {
	if err := c.fetchErrs[seq]; err != nil {
		return decode.Fetched{}, err
	}
	msgs := c.folders[c.selected]
	if seq < 1 || int(seq) > len(msgs) {
		return decode.Fetched{}, ErrMessageNotFound
	}
	msg := msgs[seq-1]

	f := decode.Fetched{
		SeqNum: seq,
		UID:    imap.UID(msg.uid),
		Flags:  []imap.Flag{imap.FlagSeen},
		Envelope: &imap.Envelope{
			Subject: msg.subject,
			Date:    time.Date(2024, 3, 1, 0, 0, int(seq), 0, time.UTC),
			From:    []imap.Address{{Name: "Acme", Mailbox: "billing", Host: "acme.com"}},
		},
		Size: int64(len(msg.body)),
		Structure: &imap.BodyStructureSinglePart{
			Type: "text", Subtype: "plain", Encoding: "7bit",
			Params: map[string]string{"charset": "utf-8"},
		},
	}
	for _, section := range opts.BodySection {
		if len(section.Part) == 0 {
			f.Raw = []byte("Subject: " + msg.subject + "\r\n" +
				"Content-Type: text/plain; charset=utf-8\r\n\r\n" + msg.body)
		} else {
			c.previews = append(c.previews, section)
			f.Preview = []byte(msg.body)
		}
	}
	return f, nil
}

func (c *fakeConn) SearchUID(_ context.Context, uid uint32) (uint32, error) {
	c.searches++
	for i, msg := range c.folders[c.selected] {
		if msg.uid == uid {
			return uint32(i + 1), nil
		}
	}
	return 0, ErrMessageNotFound
}

func (c *fakeConn) Logout(context.Context) error {
	c.logouts++
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestManager(conn *fakeConn) *Manager {
	log, _ := logtest.NewNullLogger()
	m := NewManager(Config{Timeout: time.Second, PerPage: 10, Log: log})
	m.dial = func(context.Context, model.ServerSettings, time.Duration) (imapConn, error) {
		return conn, nil
	}
	return m
}

func openSession(t *testing.T, conn *fakeConn) *Session {
	t.Helper()
	sess, err := newTestManager(conn).Open(context.Background(),
		model.Credentials{Email: "me@example.com", Password: "pw"}, gmailSettings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func uids(page model.Page) []uint32 {
	out := make([]uint32, 0, len(page.Messages))
	for _, m := range page.Messages {
		out = append(out, m.UID)
	}
	return out
}

func TestListPageNewestFirst(t *testing.T) {
	sess := openSession(t, newFakeConn("INBOX", 25))

	page, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t,
		[]uint32{1025, 1024, 1023, 1022, 1021, 1020, 1019, 1018, 1017, 1016},
		uids(page))

	first := page.Messages[0]
	assert.Equal(t, "Message 25", first.Subject)
	assert.Equal(t, "billing@acme.com", first.From)
	assert.Equal(t, "Body of message 25", first.Preview)
	assert.Equal(t, uint32(25), first.SeqNum)
	assert.True(t, first.Flags.Seen)

	page, err = sess.ListPage(context.Background(), "INBOX", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1005, 1004, 1003, 1002, 1001}, uids(page))
}

func TestListPageDefaultsAndBeyondEnd(t *testing.T) {
	sess := openSession(t, newFakeConn("INBOX", 25))

	page, err := sess.ListPage(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Len(t, page.Messages, 10)

	page, err = sess.ListPage(context.Background(), "INBOX", 9, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestListPageHonoursLargePageSize(t *testing.T) {
	sess := openSession(t, newFakeConn("INBOX", 300))

	page, err := sess.ListPage(context.Background(), "INBOX", 1, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, page.PerPage)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Messages, 150)
	assert.Equal(t, uint32(1300), page.Messages[0].UID)
	assert.Equal(t, uint32(1151), page.Messages[149].UID)

	page, err = sess.ListPage(context.Background(), "INBOX", 2, 150)
	require.NoError(t, err)
	require.Len(t, page.Messages, 150)
	assert.Equal(t, uint32(1001), page.Messages[149].UID)
}

func TestListPagePreviewFetchIsBounded(t *testing.T) {
	conn := newFakeConn("INBOX", 3)
	sess := openSession(t, conn)

	_, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.NoError(t, err)
	require.Len(t, conn.previews, 3)
	for _, section := range conn.previews {
		assert.True(t, section.Peek)
		require.NotNil(t, section.Partial)
		assert.Equal(t, int64(0), section.Partial.Offset)
		assert.Equal(t, int64(previewBytes), section.Partial.Size)
	}
}

func TestListPageEmptyFolder(t *testing.T) {
	sess := openSession(t, newFakeConn("INBOX", 0))

	page, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, page.Total)
}

func TestListPageSkipsUndecodableMessages(t *testing.T) {
	conn := newFakeConn("INBOX", 25)
	conn.fetchErrs[24] = errors.New("garbled response")
	sess := openSession(t, conn)

	page, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 9)
	assert.NotContains(t, uids(page), uint32(1024))
}

func TestListPageAbortsOnConnectionError(t *testing.T) {
	conn := newFakeConn("INBOX", 25)
	conn.fetchErrs[23] = &ConnectionError{Host: "imap.gmail.com", Timeout: true, Err: context.DeadlineExceeded}
	sess := openSession(t, conn)

	_, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.Equal(t, "connection to imap.gmail.com timed out", err.Error())
}

func TestListPageMissingFolder(t *testing.T) {
	sess := openSession(t, newFakeConn("INBOX", 3))

	page, err := sess.ListPage(context.Background(), "Bills", 1, 10)
	require.Error(t, err)
	assert.True(t, IsFolderError(err))
	assert.Equal(t, `cannot open folder "Bills"`, page.Error)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
}

func TestListPageTruncatesPreview(t *testing.T) {
	conn := newFakeConn("INBOX", 1)
	conn.folders["INBOX"][0].body = strings.Repeat("word ", 40)
	sess := openSession(t, conn)

	page, err := sess.ListPage(context.Background(), "INBOX", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	preview := page.Messages[0].Preview
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len([]rune(preview)), decode.ListPreviewLen+3)
}

func TestDetailByUIDLooksUpEveryTime(t *testing.T) {
	conn := newFakeConn("INBOX", 5)
	sess := openSession(t, conn)

	d, err := sess.DetailByUID(context.Background(), "INBOX", 1003)
	require.NoError(t, err)
	assert.Equal(t, uint32(1003), d.UID)
	assert.Equal(t, uint32(3), d.SeqNum)
	assert.Equal(t, "Body of message 3", d.Body)
	assert.False(t, d.IsHTML)

	// Expunging the first message shifts every sequence number.
	conn.folders["INBOX"] = conn.folders["INBOX"][1:]

	d, err = sess.DetailByUID(context.Background(), "INBOX", 1003)
	require.NoError(t, err)
	assert.Equal(t, uint32(1003), d.UID)
	assert.Equal(t, uint32(2), d.SeqNum)
	assert.Equal(t, 2, conn.searches)

	_, err = sess.DetailByUID(context.Background(), "INBOX", 1001)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestOpenAuthFailure(t *testing.T) {
	conn := newFakeConn("INBOX", 0)
	conn.loginErr = &ConnectionError{Host: "imap.gmail.com", Auth: true, Err: errors.New("NO")}

	_, err := newTestManager(conn).Open(context.Background(),
		model.Credentials{Email: "me@example.com"}, gmailSettings)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.True(t, conn.closed)
}

type fakeSealer struct{}

func (fakeSealer) SealAccount(acct *model.MailboxAccount, creds model.Credentials, settings model.ServerSettings) error {
	acct.Credentials = "sealed:" + creds.Email
	acct.ServerSettings = "sealed:" + settings.Host
	return nil
}

func TestConnect(t *testing.T) {
	conn := newFakeConn("INBOX", 2)
	m := newTestManager(conn)
	creds := model.Credentials{Email: "me@example.com", Password: "pw"}

	acct, err := m.Connect(context.Background(), "user-1", "GMail", creds, fakeSealer{})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "user-1", acct.UserID)
	assert.Equal(t, "me@example.com", acct.Email)
	assert.Equal(t, "sealed:imap.gmail.com", acct.ServerSettings)
	assert.Equal(t, 1, conn.logouts)
	assert.True(t, conn.closed)

	_, err = m.Connect(context.Background(), "user-1", "aol", creds, fakeSealer{})
	assert.True(t, IsUnsupportedProvider(err))
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	conn := newFakeConn("INBOX", 0)
	sess, err := newTestManager(conn).Open(context.Background(), model.Credentials{}, gmailSettings)
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, conn.logouts)
}

func TestFolders(t *testing.T) {
	conn := newFakeConn("INBOX", 0)
	sess := openSession(t, conn)

	names, err := sess.Folders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX"}, names)
}

func TestLookupProvider(t *testing.T) {
	cases := []struct {
		provider string
		host     string
	}{
		{"gmail", "imap.gmail.com"},
		{"Outlook", "outlook.office365.com"},
		{"hotmail", "outlook.office365.com"},
		{"LIVE", "outlook.office365.com"},
		{"yahoo", "imap.mail.yahoo.com"},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			settings, err := LookupProvider(tc.provider)
			require.NoError(t, err)
			assert.Equal(t, tc.host, settings.Host)
			assert.Equal(t, 993, settings.Port)
			assert.Equal(t, model.EncryptionSSL, settings.Encryption)
		})
	}

	_, err := LookupProvider("protonmail")
	require.Error(t, err)
	assert.True(t, IsUnsupportedProvider(err))
	assert.Equal(t, `unsupported email provider "protonmail"`, err.Error())
	assert.Equal(t, []string{"gmail", "hotmail", "live", "outlook", "yahoo"}, Providers())
}

func TestBoundedTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &clientConn{host: "imap.test", raw: client, timeout: 50 * time.Millisecond}

	start := time.Now()
	err := c.bounded(context.Background(), func() error {
		buf := make([]byte, 1)
		_, err := client.Read(buf)
		return err
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.Timeout)
}

func TestBoundedPassesServerErrors(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &clientConn{host: "imap.test", raw: client, timeout: time.Second}
	serverErr := &imap.Error{Type: imap.StatusResponseTypeNo, Text: "no such mailbox"}

	err := c.bounded(context.Background(), func() error { return serverErr })
	assert.Same(t, serverErr, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.bounded(ctx, func() error { return nil })
	assert.True(t, IsConnectionError(err))
}
