package mailbox

import (
	"errors"
	"fmt"
)

// ErrMessageNotFound is returned when a UID or sequence number no longer
// names a message in the selected folder.
var ErrMessageNotFound = errors.New("message not found")

// ConnectionError reports a failure to reach or talk to the IMAP server:
// network errors, timeouts and rejected logins. The scheduler retries on
// its next cycle; nothing retries internally.
type ConnectionError struct {
	Host    string
	Auth    bool
	Timeout bool
	Err     error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.Auth:
		return fmt.Sprintf("authentication failed for %s", e.Host)
	case e.Timeout:
		return fmt.Sprintf("connection to %s timed out", e.Host)
	default:
		return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnsupportedProviderError is returned for provider identifiers missing
// from the provider table.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported email provider %q", e.Provider)
}

// FolderError reports a folder that is missing or cannot be selected.
type FolderError struct {
	Folder string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("cannot open folder %q", e.Folder)
}

func (e *FolderError) Unwrap() error { return e.Err }

// DecodeError reports a single message that could not be fetched or
// decoded. It never aborts a listing.
type DecodeError struct {
	SeqNum uint32
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding message %d: %v", e.SeqNum, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsAuthError reports whether err is a ConnectionError caused by a
// rejected login.
func IsAuthError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) && connErr.Auth
}

// IsUnsupportedProvider reports whether err is an UnsupportedProviderError.
func IsUnsupportedProvider(err error) bool {
	var provErr *UnsupportedProviderError
	return errors.As(err, &provErr)
}

// IsFolderError reports whether err is a FolderError.
func IsFolderError(err error) bool {
	var folderErr *FolderError
	return errors.As(err, &folderErr)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
