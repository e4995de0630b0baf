package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prodflowhq/prodflow/types"
)

// Scripted is an offline invoker that replays canned responses keyed by
// agent name. Responses are consumed in order, so a step that calls the
// same agent twice can receive distinct payloads. Used for dry runs and
// tests.
type Scripted struct {
	mu        sync.Mutex
	responses map[string][]json.RawMessage
	calls     []string
}

func NewScripted() *Scripted {
	return &Scripted{responses: map[string][]json.RawMessage{}}
}

func (s *Scripted) Name() string { return "scripted" }

// Respond queues a response for the named agent.
func (s *Scripted) Respond(agentName string, payload any) *Scripted {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("scripted response for %q is not serializable: %v", agentName, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[agentName] = append(s.responses[agentName], raw)
	return s
}

// RespondRaw queues a pre-encoded response, valid JSON or not, so failure
// paths can be exercised.
func (s *Scripted) RespondRaw(agentName string, raw []byte) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[agentName] = append(s.responses[agentName], json.RawMessage(raw))
	return s
}

func (s *Scripted) Invoke(ctx context.Context, agentName string, prompt types.PromptPayload) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = prompt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, agentName)
	queue := s.responses[agentName]
	if len(queue) == 0 {
		return nil, &InvocationError{Agent: agentName, Err: fmt.Errorf("no scripted response left")}
	}
	next := queue[0]
	s.responses[agentName] = queue[1:]
	return next, nil
}

// Calls returns the agent names invoked so far, in order.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
