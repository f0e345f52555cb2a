package mailbox

import (
	"sort"
	"strings"

	"github.com/nhle/finmail/internal/model"
)

var (
	gmailSettings = model.ServerSettings{
		Host: "imap.gmail.com", Port: 993, Encryption: model.EncryptionSSL,
		SMTPHost: "smtp.gmail.com", SMTPPort: 465, SMTPSecurity: "ssl",
	}
	outlookSettings = model.ServerSettings{
		Host: "outlook.office365.com", Port: 993, Encryption: model.EncryptionSSL,
		SMTPHost: "smtp.office365.com", SMTPPort: 587, SMTPSecurity: "tls",
	}
	yahooSettings = model.ServerSettings{
		Host: "imap.mail.yahoo.com", Port: 993, Encryption: model.EncryptionSSL,
		SMTPHost: "smtp.mail.yahoo.com", SMTPPort: 465, SMTPSecurity: "ssl",
	}
)

var providers = map[string]model.ServerSettings{
	model.ProviderGmail:   gmailSettings,
	model.ProviderOutlook: outlookSettings,
	model.ProviderHotmail: outlookSettings,
	model.ProviderLive:    outlookSettings,
	model.ProviderYahoo:   yahooSettings,
}

// LookupProvider returns the server settings for a provider identifier,
// matched case-insensitively.
func LookupProvider(provider string) (model.ServerSettings, error) {
	settings, ok := providers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return model.ServerSettings{}, &UnsupportedProviderError{Provider: provider}
	}
	return settings, nil
}

// Providers lists the supported provider identifiers.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
