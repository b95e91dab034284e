package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/nodes"
)

const (
	nodeValidateRequest    = "validate_request"
	nodeLoadOrCreateState  = "load_or_create_state"
	nodeReason             = "reason"
	nodeExecuteTools       = "execute_tools"
	nodeIterationLimit     = "iteration_limit"
	nodeValidateAndSave    = "validate_and_save_state"
	nodeFinalizeReply      = "finalize_reply"
	fixedRunStepsPerSubmit = 8
)

var routeNodes = map[nodex.Route]string{
	nodex.RouteExecuteTools:   nodeExecuteTools,
	nodex.RouteFinish:         nodeValidateAndSave,
	nodex.RouteIterationLimit: nodeIterationLimit,
}

func (o *Orchestrator) compileSubmitGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	policy := nodex.ReasonPolicy{
		MaxRetries: o.cfg.LLMMaxRetries,
		Backoff:    o.cfg.LLMRetryBackoff,
		Timeout:    o.cfg.LLMTimeout,
		Now:        o.now,
	}

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodeLoadOrCreateState,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeLoadOrCreateState, err)
	}

	if err := graph.AddLambdaNode(nodeReason,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Reason(ctx, in, o.reasoner, o.catalog, policy)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeReason, err)
	}

	if err := graph.AddLambdaNode(nodeExecuteTools,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecuteTools(ctx, in, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExecuteTools, err)
	}

	if err := graph.AddLambdaNode(nodeIterationLimit,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.IterationLimit(in, o.now().UTC())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeIterationLimit, err)
	}

	if err := graph.AddLambdaNode(nodeValidateAndSave,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateAndSaveState(ctx, in, o.store, o.now().UTC())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateAndSave, err)
	}

	if err := graph.AddLambdaNode(nodeFinalizeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalizeReply, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeLoadOrCreateState},
		{nodeLoadOrCreateState, nodeReason},
		{nodeExecuteTools, nodeReason},
		{nodeIterationLimit, nodeValidateAndSave},
		{nodeValidateAndSave, nodeFinalizeReply},
		{nodeFinalizeReply, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	endNodes := make(map[string]bool, len(routeNodes))
	for _, node := range routeNodes {
		endNodes[node] = true
	}
	branch := compose.NewGraphBranch(func(ctx context.Context, in *nodex.GraphState) (string, error) {
		route, err := nodex.NextRoute(in, o.cfg.MaxIterations)
		if err != nil {
			return "", err
		}
		log.Debug().
			Str("session_id", in.SessionID).
			Str("route", string(route)).
			Int("iterations", in.Iterations).
			Msg("routing decision")
		return routeNodes[route], nil
	}, endNodes)
	if err := graph.AddBranch(nodeReason, branch); err != nil {
		return nil, fmt.Errorf("add branch %s: %w", nodeReason, err)
	}

	runner, err := graph.Compile(ctx,
		compose.WithGraphName("orchestrator.submit"),
		compose.WithMaxRunSteps(2*(o.cfg.MaxIterations+1)+fixedRunStepsPerSubmit),
	)
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
