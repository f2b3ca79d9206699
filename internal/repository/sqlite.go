package repository

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	ts TIMESTAMP NOT NULL,
	sender TEXT NOT NULL,
	text TEXT NOT NULL,
	language TEXT NOT NULL,
	language_confidence REAL NOT NULL,
	ensemble_score REAL NOT NULL,
	ensemble_label TEXT NOT NULL,
	confidence REAL NOT NULL,
	oracle_scores TEXT NOT NULL,
	emotions TEXT NOT NULL,
	keywords TEXT NOT NULL,
	emojis TEXT NOT NULL,
	media_urls TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_job_id ON messages(job_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
CREATE INDEX IF NOT EXISTS idx_messages_label ON messages(ensemble_label);
CREATE INDEX IF NOT EXISTS idx_messages_language ON messages(language);
`

// NewSQLite opens (or creates) the SQLite store at path and creates the
// schema. This is the default store; a single writer at a time is
// enforced at the pool level since SQLite serializes writes anyway.
func NewSQLite(path string, logger *zap.Logger) (MessageStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_time_format=sqlite"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	logger.Info("SQLite message store initialized", zap.String("path", path))
	return &sqlStore{db: db, logger: logger}, nil
}
