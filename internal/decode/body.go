package decode

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
)

// maxPartBytes caps how much of a single part is read into memory.
const maxPartBytes = 10 << 20

// Body holds the text variants found in a message.
type Body struct {
	Text string
	HTML string
}

// Resolved returns the body to display: HTML when both variants exist,
// otherwise whichever one does. isHTML reports which was chosen.
func (b Body) Resolved() (body string, isHTML bool) {
	if b.HTML != "" {
		return b.HTML, true
	}
	return b.Text, false
}

// PlainText returns the plain variant, or the HTML variant reduced to
// text when the message has no plain part.
func (b Body) PlainText() string {
	if b.Text != "" {
		return b.Text
	}
	return StripHTML(b.HTML)
}

func (b Body) empty() bool {
	return b.Text == "" && b.HTML == ""
}

// ParseBody reads a full RFC 822 message.
//
// A single-part message is decoded per its transfer encoding and charset
// and returned as-is. For a multipart message the top-level parts are
// scanned for text/plain and text/html; parts marked as attachments are
// ignored. Only when no top-level text part exists are nested multiparts
// (typically multipart/alternative inside multipart/mixed) consulted.
func ParseBody(raw []byte) (Body, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return Body{}, fmt.Errorf("reading message: %w", err)
	}

	mr := entity.MultipartReader()
	if mr == nil {
		return singlePart(entity)
	}

	var top, nested Body
	if err := collectParts(mr, &top, &nested); err != nil {
		return Body{}, err
	}
	if top.empty() {
		return nested, nil
	}
	return top, nil
}

// collectParts fills top from the text parts of mr and nested from the
// first text parts found in any nested multipart.
func collectParts(mr message.MultipartReader, top, nested *Body) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil && !tolerable(err) {
			return fmt.Errorf("reading part: %w", err)
		}
		if part == nil {
			return nil
		}
		if isAttachment(part.Header.Get("Content-Disposition")) {
			continue
		}

		if inner := part.MultipartReader(); inner != nil {
			var deeper Body
			if err := collectParts(inner, nested, &deeper); err != nil {
				return err
			}
			fillEmpty(nested, deeper)
			continue
		}

		mediaType, _, _ := part.Header.ContentType()
		switch mediaType {
		case "text/plain", "text/html":
		default:
			continue
		}

		content, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
		if err != nil {
			return fmt.Errorf("reading %s part: %w", mediaType, err)
		}
		if mediaType == "text/html" {
			if top.HTML == "" {
				top.HTML = string(content)
			}
		} else if top.Text == "" {
			top.Text = string(content)
		}
	}
}

func fillEmpty(dst *Body, src Body) {
	if dst.Text == "" {
		dst.Text = src.Text
	}
	if dst.HTML == "" {
		dst.HTML = src.HTML
	}
}

func singlePart(entity *message.Entity) (Body, error) {
	content, err := io.ReadAll(io.LimitReader(entity.Body, maxPartBytes))
	if err != nil {
		return Body{}, fmt.Errorf("reading body: %w", err)
	}

	mediaType, _, _ := entity.Header.ContentType()
	if mediaType == "text/html" {
		return Body{HTML: string(content)}, nil
	}
	return Body{Text: string(content)}, nil
}

// Part decodes a single fetched body section using the transfer
// encoding and content-type parameters reported by BODYSTRUCTURE.
// Unknown charsets and encodings yield the raw bytes rather than an error.
func Part(raw []byte, mediaType, encoding string, params map[string]string) (string, error) {
	var h message.Header
	h.SetContentType(mediaType, params)
	if encoding != "" {
		h.Set("Content-Transfer-Encoding", encoding)
	}

	entity, err := message.New(h, bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return "", fmt.Errorf("decoding part: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(entity.Body, maxPartBytes))
	if err != nil {
		// Keep whatever decoded cleanly; previews tolerate a ragged end.
		if len(content) > 0 {
			return string(content), nil
		}
		return "", fmt.Errorf("reading part: %w", err)
	}
	return string(content), nil
}

// tolerable reports errors after which go-message still hands back a
// usable entity carrying the undecoded body.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// isAttachment reports whether a Content-Disposition value says
// "attachment", compared case-insensitively.
func isAttachment(disposition string) bool {
	if disposition == "" {
		return false
	}
	value, _, err := mime.ParseMediaType(disposition)
	if err != nil {
		value, _, _ = strings.Cut(disposition, ";")
	}
	return strings.EqualFold(strings.TrimSpace(value), "attachment")
}
