package decode

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"

	"github.com/nhle/finmail/internal/model"
)

// ErrNoEnvelope is returned when a fetch result lacks the envelope every
// summary is built from.
var ErrNoEnvelope = errors.New("message has no envelope")

// Fetched is the data retrieved for one message by a single FETCH.
type Fetched struct {
	SeqNum       uint32
	UID          imap.UID
	Flags        []imap.Flag
	Envelope     *imap.Envelope
	InternalDate time.Time
	Size         int64

	// Structure is the message's BODYSTRUCTURE, nil when not fetched.
	Structure imap.BodyStructure

	// Raw is the full RFC 822 message, only fetched for details.
	Raw []byte

	// Preview is the raw content of the part chosen by PreviewPart.
	Preview []byte
}

// Summary builds the list-view projection of f. previewText is the
// decoded preview body, already reduced to plain text.
func Summary(f Fetched, previewText string) (model.MessageSummary, error) {
	if f.Envelope == nil {
		return model.MessageSummary{}, ErrNoEnvelope
	}

	s := model.MessageSummary{
		UID:     uint32(f.UID),
		SeqNum:  f.SeqNum,
		Subject: Header(f.Envelope.Subject),
		Date:    f.Envelope.Date,
		Flags:   flags(f.Flags),
		Size:    f.Size,
		Preview: Truncate(flatten(previewText), ListPreviewLen),
	}
	if s.Date.IsZero() {
		s.Date = f.InternalDate
	}
	if len(f.Envelope.From) > 0 {
		from := Address(f.Envelope.From[0])
		s.From, s.FromName = from.Email, from.Name
	}
	if f.Structure != nil {
		s.HasAttachments = HasAttachments(f.Structure)
	}
	return s, nil
}

// PreviewText decodes the preview section fetched for f.
func PreviewText(f Fetched) string {
	if f.Structure == nil || len(f.Preview) == 0 {
		return ""
	}
	_, part, ok := PreviewPart(f.Structure)
	if !ok {
		return ""
	}
	text, err := Part(f.Preview, MediaType(part), part.Encoding, part.Params)
	if err != nil {
		return ""
	}
	if strings.EqualFold(part.Subtype, "html") {
		return StripHTML(text)
	}
	return text
}

// Detail builds the fully decoded message from f, which must carry the
// raw message.
func Detail(f Fetched) (model.MessageDetail, error) {
	body, err := ParseBody(f.Raw)
	if err != nil {
		return model.MessageDetail{}, err
	}

	summary, err := Summary(f, body.PlainText())
	if err != nil {
		return model.MessageDetail{}, err
	}

	d := model.MessageDetail{
		MessageSummary: summary,
		To:             Addresses(f.Envelope.To),
		Cc:             Addresses(f.Envelope.Cc),
		TextBody:       body.Text,
	}
	d.Body, d.IsHTML = body.Resolved()

	if f.Structure != nil {
		d.Attachments = Attachments(f.Structure)
	} else {
		d.Attachments = rawAttachments(f.Raw)
	}
	d.HasAttachments = len(d.Attachments) > 0
	return d, nil
}

// rawAttachments finds attachments by walking the parsed message when no
// BODYSTRUCTURE was fetched.
func rawAttachments(raw []byte) []model.Attachment {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil
	}

	var out []model.Attachment
	_ = entity.Walk(func(path []int, part *message.Entity, err error) error {
		if err != nil {
			return nil
		}
		disposition, dparams, _ := part.Header.ContentDisposition()
		if !strings.EqualFold(disposition, "attachment") {
			return nil
		}
		mediaType, cparams, _ := part.Header.ContentType()
		_, subtype, _ := strings.Cut(mediaType, "/")

		name := dparams["filename"]
		if name == "" {
			name = cparams["name"]
		}
		size, _ := io.Copy(io.Discard, part.Body)

		out = append(out, model.Attachment{
			Filename: Header(name),
			Subtype:  subtype,
			Size:     size,
			Part:     Locator(walkPath(path)),
		})
		return nil
	})
	return out
}

// walkPath converts go-message's zero-based walk path to an IMAP section
// path.
func walkPath(path []int) []int {
	out := make([]int, len(path))
	for i, n := range path {
		out[i] = n + 1
	}
	return out
}

func flags(fs []imap.Flag) model.Flags {
	var out model.Flags
	for _, f := range fs {
		switch {
		case strings.EqualFold(string(f), string(imap.FlagSeen)):
			out.Seen = true
		case strings.EqualFold(string(f), string(imap.FlagAnswered)):
			out.Answered = true
		case strings.EqualFold(string(f), string(imap.FlagFlagged)):
			out.Flagged = true
		}
	}
	return out
}
