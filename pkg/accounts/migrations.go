package accounts

// schema creates the agent_accounts table. Specializations are stored as a
// text array; the confirmation password never leaves the form.
const schema = `
CREATE TABLE IF NOT EXISTS agent_accounts (
	id                         UUID PRIMARY KEY,
	first_name                 TEXT NOT NULL,
	last_name                  TEXT NOT NULL,
	email                      TEXT NOT NULL,
	phone                      TEXT NOT NULL,
	state                      TEXT NOT NULL,
	city                       TEXT NOT NULL,
	brokerage                  TEXT NOT NULL,
	license_number             TEXT NOT NULL,
	experience                 TEXT NOT NULL,
	transaction_volume         TEXT NOT NULL DEFAULT '',
	mls_id                     TEXT NOT NULL DEFAULT '',
	nar_id                     TEXT NOT NULL DEFAULT '',
	specializations            TEXT[] NOT NULL,
	website                    TEXT NOT NULL DEFAULT '',
	timezone                   TEXT NOT NULL,
	password_hash              TEXT NOT NULL,
	email_notifications        BOOLEAN NOT NULL,
	sms_notifications          BOOLEAN NOT NULL,
	marketing_emails           BOOLEAN NOT NULL,
	weekly_reports             BOOLEAN NOT NULL,
	consent_to_communications  BOOLEAN NOT NULL,
	created_at                 TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS agent_accounts_email_key ON agent_accounts (lower(email));
`
