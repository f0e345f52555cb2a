package model

import (
	"strconv"
	"time"
)

// Flags holds the IMAP system flags surfaced to callers.
type Flags struct {
	Seen     bool `json:"seen"`
	Answered bool `json:"answered"`
	Flagged  bool `json:"flagged"`
}

// Address is a single mailbox address with its decoded display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// String renders the address the way mail clients usually show it.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// MessageSummary is the list-view projection of a message. It is
// recomputed on every fetch and never persisted.
type MessageSummary struct {
	// UID is the provider-assigned identifier, stable across sessions.
	UID uint32 `json:"uid"`

	// SeqNum is only meaningful inside the session that produced it.
	SeqNum uint32 `json:"-"`

	Subject        string    `json:"subject"`
	From           string    `json:"from"`
	FromName       string    `json:"from_name"`
	Date           time.Time `json:"date"`
	Flags          Flags     `json:"flags"`
	Size           int64     `json:"size"`
	HasAttachments bool      `json:"has_attachments"`
	Preview        string    `json:"preview"`
}

// Attachment describes an attachment part without its content.
type Attachment struct {
	Filename string `json:"name"`

	// Subtype is the MIME subtype, e.g. "pdf" for application/pdf.
	Subtype string `json:"type"`

	Size int64 `json:"size"`

	// Part is the dotted IMAP part locator, e.g. "2.1.2".
	Part string `json:"part_number"`
}

// MessageDetail is a fully decoded message.
type MessageDetail struct {
	MessageSummary

	To []Address `json:"to"`
	Cc []Address `json:"cc"`

	// Body is the resolved body: HTML when the message carries both an
	// HTML and a plain variant, otherwise whichever exists.
	Body string `json:"body"`

	// TextBody is the plain variant, empty when the message has none.
	TextBody string `json:"-"`

	// IsHTML reports whether Body is the HTML variant.
	IsHTML bool `json:"is_html"`

	Attachments []Attachment `json:"attachments"`
}

// Page is one newest-first page of a folder listing.
type Page struct {
	Messages   []MessageSummary `json:"messages"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
	Error      string           `json:"error,omitempty"`
}

// MessageKey identifies a message across accounts and folders. UIDs are
// only unique within one folder of one account.
func MessageKey(accountID, folder string, uid uint32) string {
	return accountID + "/" + folder + "/" + strconv.FormatUint(uint64(uid), 10)
}
