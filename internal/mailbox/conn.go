package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
)

// imapConn is the subset of IMAP a Session needs. Every call is bounded
// by the connection's command timeout.
type imapConn interface {
	Login(ctx context.Context, username, password string) error
	Select(ctx context.Context, folder string) (uint32, error)
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, seq uint32, opts *imap.FetchOptions) (decode.Fetched, error)
	SearchUID(ctx context.Context, uid uint32) (uint32, error)
	Logout(ctx context.Context) error
	Close() error
}

// dialFunc opens a connection to the server described by settings.
type dialFunc func(ctx context.Context, settings model.ServerSettings, timeout time.Duration) (imapConn, error)

// clientConn is an imapConn backed by imapclient over implicit TLS.
type clientConn struct {
	host    string
	raw     net.Conn
	client  *imapclient.Client
	timeout time.Duration
}

func dialTLS(ctx context.Context, settings model.ServerSettings, timeout time.Duration) (imapConn, error) {
	addr := net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{ServerName: settings.Host},
	}
	raw, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Host: settings.Host, Timeout: isTimeout(err), Err: err}
	}

	c := &clientConn{
		host:    settings.Host,
		raw:     raw,
		timeout: timeout,
	}

	// The greeting is read by imapclient.New; bound it like any command.
	err = c.bounded(ctx, func() error {
		c.client = imapclient.New(raw, &imapclient.Options{
			WordDecoder: decode.WordDecoder,
		})
		return c.client.WaitGreeting()
	})
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return c, nil
}

// bounded runs fn with a deadline on the underlying connection: the
// command timeout or the context deadline, whichever comes first.
func (c *clientConn) bounded(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &ConnectionError{Host: c.host, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.raw.SetDeadline(deadline)
	defer func() { _ = c.raw.SetDeadline(time.Time{}) }()

	err := fn()
	if err == nil {
		return nil
	}

	// A tagged NO or BAD is the server answering; the connection is fine.
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		return err
	}
	return &ConnectionError{Host: c.host, Timeout: isTimeout(err), Err: err}
}

func (c *clientConn) Login(ctx context.Context, username, password string) error {
	err := c.bounded(ctx, func() error {
		return c.client.Login(username, password).Wait()
	})
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		return &ConnectionError{Host: c.host, Auth: true, Err: err}
	}
	return err
}

func (c *clientConn) Select(ctx context.Context, folder string) (uint32, error) {
	var count uint32
	err := c.bounded(ctx, func() error {
		data, err := c.client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
		if err != nil {
			return err
		}
		count = data.NumMessages
		return nil
	})
	return count, err
}

func (c *clientConn) List(ctx context.Context) ([]string, error) {
	var names []string
	err := c.bounded(ctx, func() error {
		mailboxes, err := c.client.List("", "*", nil).Collect()
		if err != nil {
			return err
		}
		for _, mbox := range mailboxes {
			names = append(names, mbox.Mailbox)
		}
		return nil
	})
	return names, err
}

func (c *clientConn) Fetch(ctx context.Context, seq uint32, opts *imap.FetchOptions) (decode.Fetched, error) {
	var f decode.Fetched
	err := c.bounded(ctx, func() error {
		bufs, err := c.client.Fetch(imap.SeqSetNum(seq), opts).Collect()
		if err != nil {
			return err
		}
		if len(bufs) == 0 {
			return ErrMessageNotFound
		}
		f = fetchedFromBuffer(bufs[0], opts)
		return nil
	})
	if errors.Is(err, ErrMessageNotFound) {
		return f, ErrMessageNotFound
	}
	return f, err
}

func (c *clientConn) SearchUID(ctx context.Context, uid uint32) (uint32, error) {
	var seq uint32
	err := c.bounded(ctx, func() error {
		data, err := c.client.Search(&imap.SearchCriteria{
			UID: []imap.UIDSet{imap.UIDSetNum(imap.UID(uid))},
		}, nil).Wait()
		if err != nil {
			return err
		}
		nums := data.AllSeqNums()
		if len(nums) == 0 {
			return ErrMessageNotFound
		}
		seq = nums[0]
		return nil
	})
	if errors.Is(err, ErrMessageNotFound) {
		return 0, ErrMessageNotFound
	}
	return seq, err
}

func (c *clientConn) Logout(ctx context.Context) error {
	return c.bounded(ctx, func() error {
		return c.client.Logout().Wait()
	})
}

func (c *clientConn) Close() error {
	return c.client.Close()
}

// fetchedFromBuffer copies the parts of a fetch response a Session uses.
// A whole-message section becomes Raw; a part section becomes Preview.
func fetchedFromBuffer(buf *imapclient.FetchMessageBuffer, opts *imap.FetchOptions) decode.Fetched {
	f := decode.Fetched{
		SeqNum:       buf.SeqNum,
		UID:          buf.UID,
		Flags:        buf.Flags,
		Envelope:     buf.Envelope,
		InternalDate: buf.InternalDate,
		Size:         buf.RFC822Size,
		Structure:    buf.BodyStructure,
	}
	for _, section := range opts.BodySection {
		data := buf.FindBodySection(section)
		if len(section.Part) == 0 && section.Specifier == imap.PartSpecifierNone {
			f.Raw = data
		} else {
			f.Preview = data
		}
	}
	return f
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
