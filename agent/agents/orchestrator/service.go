package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/nodes"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	MaxIterations   int           `envconfig:"MAX_ITERATIONS" split_words:"true" default:"10"`
	LLMMaxRetries   int           `envconfig:"LLM_MAX_RETRIES" split_words:"true" default:"2"`
	LLMRetryBackoff time.Duration `envconfig:"LLM_RETRY_BACKOFF" split_words:"true" default:"250ms"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" split_words:"true" default:"30s"`
	ToolConcurrency int           `envconfig:"TOOL_CONCURRENCY" split_words:"true" default:"4"`
}

var DefaultConfig = Config{
	MaxIterations:   10,
	LLMMaxRetries:   2,
	LLMRetryBackoff: 250 * time.Millisecond,
	LLMTimeout:      30 * time.Second,
	ToolConcurrency: 4,
}

func (c Config) normalize() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultConfig.MaxIterations
	}
	if c.LLMMaxRetries < 0 {
		c.LLMMaxRetries = 0
	}
	if c.LLMRetryBackoff <= 0 {
		c.LLMRetryBackoff = DefaultConfig.LLMRetryBackoff
	}
	if c.ToolConcurrency <= 0 {
		c.ToolConcurrency = DefaultConfig.ToolConcurrency
	}
	return c
}

// Orchestrator drives one user turn through the reason/act loop and persists
// the conversation once the turn settles.
type Orchestrator struct {
	store    statex.Store
	reasoner contractx.Reasoner
	tools    contractx.ToolRunner
	catalog  contractx.ToolCatalog
	locker   *statex.SessionLocker
	cfg      Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	store statex.Store,
	reasoner contractx.Reasoner,
	tools contractx.ToolRunner,
	catalog contractx.ToolCatalog,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if tools == nil {
		return nil, errors.New("tool runner is required")
	}
	if catalog == nil {
		return nil, errors.New("tool catalog is required")
	}

	o := &Orchestrator{
		store:    store,
		reasoner: reasoner,
		tools:    tools,
		catalog:  catalog,
		locker:   statex.NewSessionLocker(),
		cfg:      cfg.normalize(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileSubmitGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Submit runs one user turn and returns the assistant's reply with the state
// as persisted. Turns on the same session run one at a time. When the turn
// stops at the iteration bound the reply and state are still returned,
// alongside ErrMaxIterationsExceeded.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, text string) (string, *statex.ConversationState, error) {
	// The lock key must be the same id the store is keyed by.
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", nil, ErrInvalidSession
	}

	unlock, err := o.locker.Lock(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	defer unlock()

	started := time.Now()
	log.Debug().Str("session_id", sessionID).Msg("turn started")
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		return "", nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Int("messages", len(out.State.Messages)).
		Str("member_id", out.State.MemberID).
		Dur("elapsed", time.Since(started)).
		Msg("turn completed")

	if out.Exceeded {
		return out.Reply, out.State, fmt.Errorf("%w: limit=%d", contractx.ErrMaxIterationsExceeded, o.cfg.MaxIterations)
	}
	return out.Reply, out.State, nil
}

// HandleMessage is Submit without the state.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	reply, _, err := o.Submit(ctx, sessionID, text)
	return reply, err
}
