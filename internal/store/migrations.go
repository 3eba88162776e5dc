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
		Name:    "create records and links",
		SQL: `
			CREATE TABLE records (
				id            TEXT PRIMARY KEY,
				channel_id    INTEGER NOT NULL,
				channel_name  TEXT NOT NULL,
				message_id    INTEGER NOT NULL,
				excerpt       TEXT NOT NULL DEFAULT '',
				received_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_records_channel ON records (channel_id, message_id);
			CREATE INDEX idx_records_received ON records (received_at);

			CREATE TABLE links (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				record_id  TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
				url        TEXT NOT NULL,
				source     TEXT NOT NULL,
				domain     TEXT NOT NULL
			);

			CREATE INDEX idx_links_record ON links (record_id);
			CREATE INDEX idx_links_domain ON links (domain);
		`,
	},
	{
		Version: 2,
		Name:    "create record excerpt FTS5",
		SQL: `
			CREATE VIRTUAL TABLE records_fts USING fts5(
				excerpt,
				channel_name,
				content='records',
				content_rowid='rowid'
			);

			CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
				INSERT INTO records_fts(rowid, excerpt, channel_name)
				VALUES (new.rowid, new.excerpt, new.channel_name);
			END;

			CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
				INSERT INTO records_fts(records_fts, rowid, excerpt, channel_name)
				VALUES ('delete', old.rowid, old.excerpt, old.channel_name);
			END;
		`,
	},
}
