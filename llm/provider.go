package llm

import (
	"context"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
}

type ChatRequest struct {
	TraceID     string        `json:"trace_id,omitempty"`
	Model       string        `json:"model,omitempty"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model,omitempty"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// FinishReasonLength marks a response cut off by the backend's output limit.
const FinishReasonLength = "length"

// Generation is the engine-facing view of a chat response: the text of the
// first choice and whether the backend truncated it.
type Generation struct {
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// Generation extracts the first choice. A response without choices yields an
// empty, non-truncated Generation; callers treat that as an empty reply.
func (r *ChatResponse) Generation() Generation {
	if r == nil || len(r.Choices) == 0 {
		return Generation{}
	}
	first := r.Choices[0]
	return Generation{
		Text:      first.Message.Content,
		Truncated: first.FinishReason == FinishReasonLength,
	}
}

// Provider is the unified adapter interface for text-generation backends.
type Provider interface {
	// Completion issues a synchronous chat request and returns the full response.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider's unique identifier.
	Name() string
}
