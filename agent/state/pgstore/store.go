// Package pgstore persists conversations in Postgres through bun.
package pgstore

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
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `split_words:"true" default:"10"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
}

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations"`

	SessionID string    `bun:"session_id,pk"`
	MemberID  string    `bun:"member_id,notnull"`
	Payload   string    `bun:"payload,type:jsonb,notnull"`
	Version   int       `bun:"version,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type Store struct {
	db *bun.DB
}

var _ statex.Store = (*Store)(nil)

// Open connects, applies pending migrations and returns a ready store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.DialTimeout > 0 {
		opts = append(opts, pgdriver.WithDialTimeout(cfg.DialTimeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := Migrate(ctx, sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return New(bun.NewDB(sqldb, pgdialect.New())), nil
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open postgres migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create postgres migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply postgres migrations: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*statex.ConversationState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, statex.ErrInvalidSession
	}

	row := new(conversationRow)
	err := s.db.NewSelect().
		Model(row).
		Where("session_id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, statex.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return statex.DecodeConversation([]byte(row.Payload))
}

func (s *Store) Save(ctx context.Context, st *statex.ConversationState) error {
	payload, err := statex.EncodeConversation(st)
	if err != nil {
		return err
	}

	row := &conversationRow{
		SessionID: st.SessionID,
		MemberID:  st.MemberID,
		Payload:   string(payload),
		Version:   st.Version,
		UpdatedAt: st.UpdatedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("member_id = EXCLUDED.member_id").
		Set("payload = EXCLUDED.payload").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return statex.ErrInvalidSession
	}
	_, err := s.db.NewDelete().
		Model((*conversationRow)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
