package db

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translation_request (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ip_address  TEXT,
	input_lang  TEXT NOT NULL,
	input_text  TEXT NOT NULL,
	output_lang TEXT NOT NULL,
	date_time   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS translated_text (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  INTEGER NOT NULL REFERENCES translation_request(id) ON DELETE CASCADE,
	ordinal     INTEGER NOT NULL DEFAULT 0,
	output_text TEXT NOT NULL,
	UNIQUE(request_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_translated_text_request ON translated_text(request_id);
CREATE INDEX IF NOT EXISTS idx_translation_request_date ON translation_request(date_time);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS translation_request (
	id          BIGSERIAL PRIMARY KEY,
	ip_address  VARCHAR(64),
	input_lang  VARCHAR(8) NOT NULL,
	input_text  TEXT NOT NULL,
	output_lang VARCHAR(8) NOT NULL,
	date_time   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS translated_text (
	id          BIGSERIAL PRIMARY KEY,
	request_id  BIGINT NOT NULL REFERENCES translation_request(id) ON DELETE CASCADE,
	ordinal     INTEGER NOT NULL DEFAULT 0,
	output_text TEXT NOT NULL,
	UNIQUE(request_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_translated_text_request ON translated_text(request_id);
CREATE INDEX IF NOT EXISTS idx_translation_request_date ON translation_request(date_time);
`
