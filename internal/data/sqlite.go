package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// sqliteMessageRepo implements the message archive on SQLite
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo opens (or creates) the archive database at dbPath
func NewSQLiteMessageRepo(dbPath string) (repo.MessageRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer keeps inserts serialized
	db.SetMaxOpenConns(1)

	// seq records receipt order for messages sharing a timestamp
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			conversation_id TEXT NOT NULL,
			author TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at DESC, seq DESC)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC, seq DESC)`)

	return &sqliteMessageRepo{db: db}, nil
}

// Append stores a message
func (r *sqliteMessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, author, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.Author, msg.Text, msg.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first
func (r *sqliteMessageRepo) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if conversationID == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, conversation_id, author, text, created_at
			FROM messages
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT id, conversation_id, author, text, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		`, conversationID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Author, &m.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Timestamp = time.UnixMilli(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Close closes the database
func (r *sqliteMessageRepo) Close() error {
	return r.db.Close()
}
