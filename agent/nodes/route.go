package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

type Decision string

const (
	DecisionContinue  Decision = "continue"
	DecisionTerminate Decision = "terminate"
)

// Decide inspects the latest message: tool requests mean the loop continues,
// a plain answer ends it. Calling it on anything but an assistant message is
// a programming error.
func Decide(conv *statex.ConversationState) (Decision, error) {
	last, ok := conv.LastMessage()
	if !ok {
		return "", fmt.Errorf("%w: conversation is empty", contractx.ErrRouterContract)
	}
	if last.Role != statex.RoleAssistant {
		return "", fmt.Errorf("%w: latest message has role %q", contractx.ErrRouterContract, last.Role)
	}
	if last.HasToolRequests() {
		return DecisionContinue, nil
	}
	return DecisionTerminate, nil
}

type Route string

const (
	RouteExecuteTools   Route = "execute_tools"
	RouteFinish         Route = "finish"
	RouteIterationLimit Route = "iteration_limit"
)

// NextRoute maps the decision onto the turn's next step, diverting a
// continue to the iteration limit once maxIterations executions have run.
func NextRoute(in *GraphState, maxIterations int) (Route, error) {
	if in == nil || in.Conversation == nil {
		return "", fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}
	decision, err := Decide(in.Conversation)
	if err != nil {
		return "", err
	}
	if decision == DecisionTerminate {
		return RouteFinish, nil
	}
	if in.Iterations >= maxIterations {
		return RouteIterationLimit, nil
	}
	return RouteExecuteTools, nil
}
