// MockProvider is a test double for the generation backend.
//
// It supports scripted response queues, error injection and call recording.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/medquorum/llm"
)

// ScriptedReply is one queued mock response.
type ScriptedReply struct {
	Content      string
	FinishReason string
	Err          error
}

// MockProvider implements llm.Provider for tests. Replies are consumed from
// the script in order; once the script is exhausted the last configured
// default reply is repeated.
type MockProvider struct {
	mu sync.Mutex

	name    string
	script  []ScriptedReply
	deflt   ScriptedReply
	delay   time.Duration
	calls   []*llm.ChatRequest
	replyFn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// NewMockProvider creates a MockProvider with a generic default reply.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name:  "mock",
		deflt: ScriptedReply{Content: "mock response", FinishReason: "stop"},
	}
}

// WithName sets the provider name.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithDefault sets the reply used once the script runs out.
func (m *MockProvider) WithDefault(reply ScriptedReply) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deflt = reply
	return m
}

// WithScript queues replies to be consumed one per call.
func (m *MockProvider) WithScript(replies ...ScriptedReply) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
	return m
}

// WithDelay makes every call sleep before replying, honouring ctx.
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompletionFunc overrides the scripted behaviour entirely.
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyFn = fn
	return m
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Completion implements llm.Provider.
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.replyFn
	delay := m.delay
	reply := m.deflt
	if len(m.script) > 0 {
		reply = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fn != nil {
		return fn(ctx, req)
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.ChatResponse{
		Provider: m.name,
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			Index:        0,
			FinishReason: reply.FinishReason,
			Message:      llm.Message{Role: llm.RoleAssistant, Content: reply.Content},
		}},
		CreatedAt: time.Now(),
	}, nil
}

// CallCount returns how many Completion calls were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the recorded requests in call order.
func (m *MockProvider) Calls() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent request, or nil.
func (m *MockProvider) LastCall() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
