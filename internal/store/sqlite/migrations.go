package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                TEXT PRIMARY KEY,
    email             TEXT NOT NULL UNIQUE,
    provider          TEXT NOT NULL DEFAULT 'gmail',
    display_name      TEXT,
    cursor            TEXT NOT NULL DEFAULT '',
    initial_sync_done BOOLEAN NOT NULL DEFAULT FALSE,
    backfill_days     INTEGER NOT NULL DEFAULT 30,
    created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id                  TEXT PRIMARY KEY,
    account_id          TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    provider_message_id TEXT NOT NULL,
    provider_thread_id  TEXT NOT NULL DEFAULT '',
    from_addr           TEXT NOT NULL,
    from_name           TEXT,
    subject             TEXT,
    body_text           TEXT,
    body_hash           TEXT NOT NULL,
    sent_at             TEXT NOT NULL,
    revision            INTEGER NOT NULL DEFAULT 1,
    is_current          BOOLEAN NOT NULL DEFAULT TRUE,
    created_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (account_id, provider_message_id, revision)
);

-- The dedup key: one current revision per provider message per account.
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_dedup
    ON messages(account_id, provider_message_id) WHERE is_current;

CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account_id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(provider_thread_id);

CREATE TABLE IF NOT EXISTS message_recipients (
    message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    address    TEXT NOT NULL,
    name       TEXT,
    role       TEXT NOT NULL CHECK (role IN ('to', 'cc', 'bcc')),
    PRIMARY KEY (message_id, role, address)
);

CREATE TABLE IF NOT EXISTS conversations (
    id                TEXT PRIMARY KEY,
    thread_key        TEXT UNIQUE,
    title             TEXT NOT NULL DEFAULT '',
    message_count     INTEGER NOT NULL DEFAULT 0,
    participant_count INTEGER NOT NULL DEFAULT 0,
    first_message_at  TEXT,
    last_message_at   TEXT,
    last_processed_at TEXT,
    archived          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_title ON conversations(title COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_conversations_last ON conversations(last_message_at DESC);

CREATE TABLE IF NOT EXISTS conversation_messages (
    conversation_id   TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    message_id        TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    assignment_source TEXT NOT NULL CHECK (assignment_source IN ('sync', 'heuristic', 'manual')),
    confidence        REAL NOT NULL DEFAULT 1.0,
    reviewed          BOOLEAN NOT NULL DEFAULT TRUE,
    created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (conversation_id, message_id)
);

-- Automatic assignment is exactly one link per message; only the manual
-- path may add more.
CREATE UNIQUE INDEX IF NOT EXISTS idx_links_auto_single
    ON conversation_messages(message_id) WHERE assignment_source != 'manual';

CREATE TABLE IF NOT EXISTS participants (
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    address         TEXT NOT NULL,
    contact_id      TEXT,
    message_count   INTEGER NOT NULL DEFAULT 0,
    first_seen      TEXT,
    last_seen       TEXT,
    PRIMARY KEY (conversation_id, address)
);

CREATE INDEX IF NOT EXISTS idx_participants_address ON participants(address);

CREATE TABLE IF NOT EXISTS contacts (
    id                  TEXT PRIMARY KEY,
    email               TEXT NOT NULL UNIQUE,
    name                TEXT,
    company             TEXT,
    interaction_count   INTEGER NOT NULL DEFAULT 0,
    last_interaction_at TEXT,
    created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_log (
    id            TEXT PRIMARY KEY,
    account_id    TEXT NOT NULL,
    sync_type     TEXT NOT NULL CHECK (sync_type IN ('initial', 'incremental')),
    status        TEXT NOT NULL,
    fetched       INTEGER NOT NULL DEFAULT 0,
    stored        INTEGER NOT NULL DEFAULT 0,
    new_count     INTEGER NOT NULL DEFAULT 0,
    updated_count INTEGER NOT NULL DEFAULT 0,
    cursor_before TEXT NOT NULL DEFAULT '',
    cursor_after  TEXT NOT NULL DEFAULT '',
    error         TEXT NOT NULL DEFAULT '',
    started_at    TEXT NOT NULL,
    finished_at   TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_log_account ON sync_log(account_id, started_at DESC);
`
