// Package libsqlstore persists conversations in a local libSQL file, the
// embedded counterpart of pgstore.
package libsqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"

	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Config struct {
	Path string `split_words:"true" default:"conversations.db"`
}

type Store struct {
	db *sql.DB
}

var _ statex.Store = (*Store)(nil)

func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("libsql path is required")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open libsql migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectTurso, db, fsys)
	if err != nil {
		return fmt.Errorf("create libsql migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply libsql migrations: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*statex.ConversationState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, statex.ErrInvalidSession
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM conversations WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, statex.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return statex.DecodeConversation([]byte(payload))
}

func (s *Store) Save(ctx context.Context, st *statex.ConversationState) error {
	payload, err := statex.EncodeConversation(st)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO conversations (session_id, member_id, payload, version, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    member_id = excluded.member_id,
    payload = excluded.payload,
    version = excluded.version,
    updated_at = excluded.updated_at`,
		st.SessionID, st.MemberID, string(payload), st.Version, st.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return statex.ErrInvalidSession
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
