package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/agents/assistant"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/llm"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state/libsqlstore"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state/pgstore"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/tool"
	configx "github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/config"
	_ "github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/logger/autoload"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/memberapi"
)

const (
	storeMemory   = "memory"
	storeUpstash  = "upstash"
	storePostgres = "postgres"
	storeLibSQL   = "libsql"
)

type StoreConfig struct {
	Backend string `envconfig:"BACKEND" split_words:"true" default:"libsql"`
}

type demoTurn struct {
	sessionID string
	text      string
}

var demoTurns = []demoTurn{
	{sessionID: "user_session_medicare_001", text: "What's the status of my ID card? My member ID is 12345."},
	{sessionID: "user_session_medicare_001", text: "Can you tell me about my dental coverage?"},
	{sessionID: "user_session_medicare_002", text: "I need to request a new ID card. My member ID is 67890. I lost it."},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("assistant stopped")
	}
}

func run(ctx context.Context) error {
	llmCfg := configx.MustNew[llm.Config]("OPENROUTER")
	agentCfg := configx.MustNew[orchestrator.Config]("AGENT")
	storeCfg := configx.MustNew[StoreConfig]("STORE")

	store, closer, err := openStore(ctx, storeCfg.Backend)
	if err != nil {
		return err
	}
	defer closer.Close()

	completer, err := llm.NewCompleter(ctx, *llmCfg)
	if err != nil {
		return err
	}
	reasoner, err := assistant.New(completer)
	if err != nil {
		return err
	}

	registry, err := tool.NewMedicareRegistry(memberAPI())
	if err != nil {
		return err
	}
	executor := tool.NewExecutor(registry, tool.WithMaxConcurrency(agentCfg.ToolConcurrency))

	o, err := orchestrator.New(store, reasoner, executor, registry, *agentCfg)
	if err != nil {
		return err
	}

	for _, turn := range demoTurns {
		fmt.Printf("\n[%s] User: %s\n", turn.sessionID, turn.text)
		reply, _, err := o.Submit(ctx, turn.sessionID, turn.text)
		switch {
		case err == nil:
		case errors.Is(err, contractx.ErrMaxIterationsExceeded):
			log.Warn().Err(err).Str("session_id", turn.sessionID).Msg("turn hit the tool iteration limit")
		default:
			return fmt.Errorf("session %s: %w", turn.sessionID, err)
		}
		fmt.Printf("[%s] Assistant: %s\n", turn.sessionID, reply)
	}
	return nil
}

func memberAPI() memberapi.API {
	cfg, err := configx.New[memberapi.Config]("MEMBER_API")
	if err != nil || strings.TrimSpace(cfg.URL) == "" {
		log.Info().Msg("MEMBER_API_URL not set, using in-process mock member api")
		return memberapi.NewMock()
	}
	return memberapi.MustNew(*cfg)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, backend string) (statex.Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case storeMemory:
		return statex.NewMemoryStore(), nopCloser{}, nil
	case storeUpstash:
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case storePostgres:
		cfg := configx.MustNew[pgstore.Config]("POSTGRES")
		store, err := pgstore.Open(ctx, *cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case storeLibSQL, "":
		cfg := configx.MustNew[libsqlstore.Config]("LIBSQL")
		store, err := libsqlstore.Open(ctx, *cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
