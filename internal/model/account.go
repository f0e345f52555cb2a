package model

import "time"

// Supported provider identifiers.
const (
	ProviderGmail   = "gmail"
	ProviderOutlook = "outlook"
	ProviderHotmail = "hotmail"
	ProviderLive    = "live"
	ProviderYahoo   = "yahoo"
)

// EncryptionSSL is the only transport security the provider table uses.
const EncryptionSSL = "ssl"

// ServerSettings describes how to reach a provider's mail servers.
type ServerSettings struct {
	// Host and Port locate the IMAP server.
	Host string `json:"host"`
	Port int    `json:"port"`

	// Encryption is the IMAP transport security ("ssl" is implicit TLS).
	Encryption string `json:"encryption"`

	// SMTP settings are recorded for completeness; nothing sends mail.
	SMTPHost     string `json:"smtp_host,omitempty"`
	SMTPPort     int    `json:"smtp_port,omitempty"`
	SMTPSecurity string `json:"smtp_security,omitempty"`
}

// Credentials are the secrets needed to log in to a mailbox.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MailboxAccount is a connected mailbox owned by a user. The credential
// and server-settings blobs are sealed by the credential vault and are
// never stored in plain text.
type MailboxAccount struct {
	// ID is the internal unique identifier for the account.
	ID string `json:"id"`

	// UserID identifies the owner.
	UserID string `json:"user_id"`

	// Email is the mailbox address used to log in.
	Email string `json:"email"`

	// Provider is the provider identifier (see Provider* constants).
	Provider string `json:"provider"`

	// Credentials is the sealed JSON encoding of Credentials.
	Credentials string `json:"-"`

	// ServerSettings is the sealed JSON encoding of ServerSettings.
	ServerSettings string `json:"-"`

	// LastChecked is when the account was last scanned.
	LastChecked *time.Time `json:"last_checked,omitempty"`

	// CreatedAt is when the account was connected.
	CreatedAt time.Time `json:"created_at"`
}
