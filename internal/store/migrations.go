package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	email_address   TEXT NOT NULL,
	provider        TEXT NOT NULL,
	credentials     TEXT NOT NULL,
	server_settings TEXT NOT NULL,
	last_checked    DATETIME,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, email_address)
);

CREATE TABLE IF NOT EXISTS insights (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	message_id     TEXT NOT NULL,
	insight_type   TEXT NOT NULL CHECK(insight_type IN (
		'bill_due', 'price_increase', 'subscription_renewal',
		'payment_confirmation', 'investment_update')),
	description    TEXT NOT NULL DEFAULT '',
	amount_cents   INTEGER,
	insight_date   TEXT,
	status         TEXT NOT NULL DEFAULT 'new' CHECK(status IN ('new', 'pending', 'paid', 'overdue')),
	source_subject TEXT NOT NULL DEFAULT '',
	source_from    TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_insights_user_id ON insights(user_id);
CREATE INDEX IF NOT EXISTS idx_insights_message ON insights(user_id, message_id);
CREATE INDEX IF NOT EXISTS idx_insights_type ON insights(insight_type);
CREATE INDEX IF NOT EXISTS idx_insights_created_at ON insights(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		// Type-specific fields that do not fit the single amount and
		// date columns.
		version: 2,
		sql: `
ALTER TABLE insights ADD COLUMN old_amount_cents INTEGER;
ALTER TABLE insights ADD COLUMN new_amount_cents INTEGER;
ALTER TABLE insights ADD COLUMN percentage REAL;
ALTER TABLE insights ADD COLUMN performance_change REAL;
ALTER TABLE insights ADD COLUMN total_value_cents INTEGER;

CREATE INDEX IF NOT EXISTS idx_insights_status ON insights(status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS scanned_messages (
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	uid        INTEGER NOT NULL,
	scanned_at DATETIME NOT NULL,
	PRIMARY KEY (account_id, uid)
);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
	{
		// UIDs are per folder. Rows written before this version all came
		// from INBOX scans.
		version: 4,
		sql: `
CREATE TABLE scanned_messages_v4 (
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	folder     TEXT NOT NULL,
	uid        INTEGER NOT NULL,
	scanned_at DATETIME NOT NULL,
	PRIMARY KEY (account_id, folder, uid)
);

INSERT INTO scanned_messages_v4 (account_id, folder, uid, scanned_at)
SELECT account_id, 'INBOX', uid, scanned_at FROM scanned_messages;

DROP TABLE scanned_messages;
ALTER TABLE scanned_messages_v4 RENAME TO scanned_messages;

INSERT INTO schema_version (version) VALUES (4);
`,
	},
}
