package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/biz/repo"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS messages (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT UNIQUE NOT NULL,
	conversation_id TEXT NOT NULL,
	author TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages (created_at DESC, seq DESC);
`

// postgresMessageRepo implements the message archive on PostgreSQL
type postgresMessageRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresMessageRepo connects to databaseURL and ensures the schema exists
func NewPostgresMessageRepo(ctx context.Context, databaseURL string) (repo.MessageRepo, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &postgresMessageRepo{pool: pool}, nil
}

// Append stores a message
func (r *postgresMessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, author, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.ConversationID, msg.Author, msg.Text, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first
func (r *postgresMessageRepo) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		rows pgx.Rows
		err  error
	)
	if conversationID == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT id, conversation_id, author, text, created_at
			FROM messages
			ORDER BY created_at DESC, seq DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id, conversation_id, author, text, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		`, conversationID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var m domain.Message
		err := row.Scan(&m.ID, &m.ConversationID, &m.Author, &m.Text, &m.Timestamp)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}

// Close closes the pool
func (r *postgresMessageRepo) Close() error {
	r.pool.Close()
	return nil
}
