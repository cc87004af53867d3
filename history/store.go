// Package history persists conversation transcripts in Postgres. It is an
// optional side channel: the turn pipeline works without it, and the HTTP
// layer degrades to stateless replies when no DSN is configured.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Config holds the Postgres connection settings.
type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type Conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	ID        string    `bun:"id,pk" json:"conversation_id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages"`

	ID             int64           `bun:"id,pk,autoincrement" json:"-"`
	ConversationID string          `bun:"conversation_id,notnull" json:"conversation_id"`
	Role           string          `bun:"role,notnull" json:"role"`
	Text           string          `bun:"text,notnull" json:"text"`
	StructuredData json.RawMessage `bun:"structured_data,type:jsonb" json:"structured_data,omitempty"`
	CreatedAt      time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"ts"`
}

// Store wraps a bun connection to the transcript tables.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history: dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return &Store{
		db:  bun.NewDB(sqldb, pgdialect.New()),
		now: time.Now,
	}, nil
}

// EnsureSchema creates the transcript tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, model := range []any{(*Conversation)(nil), (*Message)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("history: create table: %w", err)
		}
	}
	return nil
}

// EnsureConversation returns the conversation, creating it when the given id
// is empty or unknown. Fresh ids are UUIDs.
func (s *Store) EnsureConversation(ctx context.Context, userID, conversationID string) (*Conversation, error) {
	if conversationID != "" {
		var conv Conversation
		err := s.db.NewSelect().Model(&conv).
			Where("id = ?", conversationID).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err == nil {
			return &conv, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("history: lookup conversation: %w", err)
		}
	}

	conv := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(conv).Exec(ctx); err != nil {
		return nil, fmt.Errorf("history: create conversation: %w", err)
	}
	return conv, nil
}

// Append stores one message at the end of a conversation.
func (s *Store) Append(ctx context.Context, conversationID, role, text string, structured json.RawMessage) error {
	msg := &Message{
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		StructuredData: structured,
		CreatedAt:      s.now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		return fmt.Errorf("history: append message: %w", err)
	}
	return nil
}

// Tail returns the last n messages of a conversation in chronological order.
func (s *Store) Tail(ctx context.Context, conversationID string, n int) ([]Message, error) {
	if n <= 0 {
		n = 10
	}
	var msgs []Message
	err := s.db.NewSelect().Model(&msgs).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: read tail: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
