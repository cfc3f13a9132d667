package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the ledger mirror and summary cache in PostgreSQL.
type PostgresStore struct {
	pool       *pgxpool.Pool
	retention  time.Duration
	summaryTTL time.Duration
}

func NewPostgresStore(ctx context.Context, databaseURL string, retention, summaryTTL time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if summaryTTL <= 0 {
		summaryTTL = 5 * time.Minute
	}
	return &PostgresStore{pool: pool, retention: retention, summaryTTL: summaryTTL}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			visible_to TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_messages_conv_created ON ledger_messages (conversation_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS summary_cache (
			conversation_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, record MessageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	expiresAt := time.Now().UTC().Add(s.retention)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_messages (id, conversation_id, author_id, role, content, visible_to, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.ConversationID,
		record.AuthorID,
		record.Role,
		record.Text,
		record.VisibleTo,
		record.CreatedAt,
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	// Every append refreshes the retention window of the whole conversation
	// and stales any cached summary.
	if _, err := s.pool.Exec(ctx,
		`UPDATE ledger_messages SET expires_at = $2 WHERE conversation_id = $1`,
		record.ConversationID, expiresAt,
	); err != nil {
		return fmt.Errorf("refresh retention: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM summary_cache WHERE conversation_id = $1`,
		record.ConversationID,
	); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) Messages(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, author_id, role, content, visible_to, created_at
		 FROM ledger_messages
		 WHERE conversation_id = $1 AND expires_at > now()
		 ORDER BY created_at DESC LIMIT $2`,
		conversationID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var r MessageRecord
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.AuthorID, &r.Role, &r.Text, &r.VisibleTo, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	// Reverse into chronological order for replay.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *PostgresStore) PutSummary(ctx context.Context, conversationID, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summary_cache (conversation_id, content, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (conversation_id) DO UPDATE SET content = $2, expires_at = $3`,
		conversationID,
		text,
		time.Now().UTC().Add(s.summaryTTL),
	)
	if err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, conversationID string) (string, bool, error) {
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM summary_cache WHERE conversation_id = $1 AND expires_at > now()`,
		conversationID,
	).Scan(&content)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get summary: %w", err)
	}
	return content, true, nil
}

// StartSweeper deletes expired rows on an interval.
func (s *PostgresStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.pool.Exec(ctx, `DELETE FROM ledger_messages WHERE expires_at <= now()`)
				_, _ = s.pool.Exec(ctx, `DELETE FROM summary_cache WHERE expires_at <= now()`)
			}
		}
	}()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
