package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and requirements",
		SQL: `
			CREATE TABLE users (
				id          TEXT PRIMARY KEY,
				email       TEXT NOT NULL,
				name        TEXT NOT NULL,
				company     TEXT NOT NULL DEFAULT '',
				approved    INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_users_email ON users (email);

			CREATE TABLE requirements (
				id                TEXT PRIMARY KEY,
				user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				free_text         TEXT NOT NULL,
				industry          TEXT NOT NULL DEFAULT '',
				product_service   TEXT NOT NULL DEFAULT '',
				target_location   TEXT NOT NULL DEFAULT '',
				target_market     TEXT NOT NULL DEFAULT '',
				primary_industry  TEXT NOT NULL DEFAULT '',
				status            TEXT NOT NULL DEFAULT 'new',
				created_at        TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_requirements_user ON requirements (user_id);
			CREATE INDEX idx_requirements_status ON requirements (status);
		`,
	},
	{
		Version: 2,
		Name:    "create decision maker roles",
		SQL: `
			CREATE TABLE decision_maker_roles (
				id                  TEXT PRIMARY KEY,
				requirement_id      TEXT NOT NULL REFERENCES requirements(id) ON DELETE CASCADE,
				role                TEXT NOT NULL,
				role_key            TEXT NOT NULL,
				priority            INTEGER NOT NULL,
				reasoning           TEXT NOT NULL,
				industry_relevance  TEXT NOT NULL,
				confidence          REAL NOT NULL,
				provider            TEXT NOT NULL DEFAULT '',
				model               TEXT NOT NULL DEFAULT '',
				created_at          TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_roles_key ON decision_maker_roles (requirement_id, role_key);
			CREATE INDEX idx_roles_priority ON decision_maker_roles (requirement_id, priority);
		`,
	},
	{
		Version: 3,
		Name:    "create leads",
		SQL: `
			CREATE TABLE leads (
				id              TEXT PRIMARY KEY,
				requirement_id  TEXT NOT NULL REFERENCES requirements(id) ON DELETE CASCADE,
				apollo_id       TEXT NOT NULL DEFAULT '',
				first_name      TEXT NOT NULL DEFAULT '',
				last_name       TEXT NOT NULL DEFAULT '',
				title           TEXT NOT NULL DEFAULT '',
				company         TEXT NOT NULL DEFAULT '',
				company_domain  TEXT NOT NULL DEFAULT '',
				email           TEXT NOT NULL DEFAULT '',
				linkedin_url    TEXT NOT NULL DEFAULT '',
				location        TEXT NOT NULL DEFAULT '',
				status          TEXT NOT NULL DEFAULT 'found',
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_leads_requirement ON leads (requirement_id);
			CREATE UNIQUE INDEX idx_leads_apollo ON leads (requirement_id, apollo_id)
				WHERE apollo_id != '';
		`,
	},
	{
		Version: 4,
		Name:    "create campaigns, messages, and replies",
		SQL: `
			CREATE TABLE campaigns (
				id              TEXT PRIMARY KEY,
				requirement_id  TEXT NOT NULL REFERENCES requirements(id) ON DELETE CASCADE,
				user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name            TEXT NOT NULL,
				subject         TEXT NOT NULL DEFAULT '',
				body_template   TEXT NOT NULL DEFAULT '',
				status          TEXT NOT NULL DEFAULT 'draft',
				sent_count      INTEGER NOT NULL DEFAULT 0,
				reply_count     INTEGER NOT NULL DEFAULT 0,
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_campaigns_requirement ON campaigns (requirement_id);

			CREATE TABLE campaign_messages (
				id           TEXT PRIMARY KEY,
				campaign_id  TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
				lead_id      TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
				message_id   TEXT NOT NULL DEFAULT '',
				subject      TEXT NOT NULL DEFAULT '',
				sent_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_campaign ON campaign_messages (campaign_id);
			CREATE INDEX idx_messages_message_id ON campaign_messages (message_id);

			CREATE TABLE replies (
				id            TEXT PRIMARY KEY,
				campaign_id   TEXT NOT NULL DEFAULT '',
				lead_id       TEXT NOT NULL DEFAULT '',
				from_address  TEXT NOT NULL,
				subject       TEXT NOT NULL DEFAULT '',
				snippet       TEXT NOT NULL DEFAULT '',
				received_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_replies_campaign ON replies (campaign_id);
		`,
	},
	{
		Version: 5,
		Name:    "create tickets and jobs",
		SQL: `
			CREATE TABLE tickets (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				subject     TEXT NOT NULL,
				body        TEXT NOT NULL DEFAULT '',
				status      TEXT NOT NULL DEFAULT 'open',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_tickets_user ON tickets (user_id);

			CREATE TABLE jobs (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				kind         TEXT NOT NULL,
				payload      TEXT NOT NULL DEFAULT '{}',
				status       TEXT NOT NULL DEFAULT 'queued',
				attempts     INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 3,
				lease_until  TEXT NOT NULL DEFAULT '',
				last_error   TEXT NOT NULL DEFAULT '',
				created_at   TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_jobs_claim ON jobs (status, id);
		`,
	},
}
