// Package decode turns raw IMAP fetch results into model messages.
//
// It handles RFC 2047 header decoding, body resolution across MIME
// parts, attachment discovery from BODYSTRUCTURE, and the plain-text
// previews shown in listings.
package decode

import (
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/charset"

	"github.com/nhle/finmail/internal/model"
)

// WordDecoder converts RFC 2047 encoded words from any charset go-message
// knows about into UTF-8.
var WordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

var encodedWord = regexp.MustCompile(`=\?[^?\s]+\?[bBqQ]\?[^?\s]*\?=`)

// Header decodes every encoded word in s and concatenates the results as
// UTF-8. Text outside encoded words, and words in a charset that cannot
// be converted, pass through unchanged.
func Header(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}

	if decoded, err := WordDecoder.DecodeHeader(s); err == nil {
		return decoded
	}

	// One bad word must not spoil the rest of the header.
	return encodedWord.ReplaceAllStringFunc(s, func(word string) string {
		decoded, err := WordDecoder.Decode(word)
		if err != nil {
			return word
		}
		return decoded
	})
}

// Address converts an IMAP envelope address.
func Address(addr imap.Address) model.Address {
	return model.Address{
		Email: addr.Addr(),
		Name:  Header(addr.Name),
	}
}

// Addresses converts a list of IMAP envelope addresses, skipping group
// markers that carry no mailbox.
func Addresses(addrs []imap.Address) []model.Address {
	out := make([]model.Address, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Mailbox == "" {
			continue
		}
		out = append(out, Address(addr))
	}
	return out
}
