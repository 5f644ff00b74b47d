package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/storage/models"
	"github.com/novapay/rag-chat-backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		flow_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON chat_turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON chat_turns(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chat_turns
		 (id, session_id, question, answer, latency_ms, flow_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Question, turn.Answer,
		turn.LatencyMS, turn.FlowID, turn.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat turn: %w", err)
	}
	return nil
}

// ListChatTurns returns the most recent turns for a session, newest first.
func (c *Client) ListChatTurns(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, session_id, question, answer, latency_ms, flow_id, created_at
		 FROM chat_turns WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat turns: %w", err)
	}
	defer rows.Close()

	turns := make([]models.ChatTurn, 0)
	for rows.Next() {
		var (
			turn      models.ChatTurn
			flowID    sql.NullString
			createdAt int64
		)
		err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Question, &turn.Answer,
			&turn.LatencyMS, &flowID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turn.FlowID = flowID.String
		turn.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}
