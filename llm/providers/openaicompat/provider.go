// Package openaicompat implements llm.Provider against any OpenAI-compatible
// chat completion endpoint (OpenAI, vLLM, DashScope compatible mode, etc.).
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/llm"
	"github.com/BaSui01/medquorum/types"
)

// Config configures the adapter.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Provider is an OpenAI-compatible chat completion client.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a new adapter instance.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "openaicompat_provider")),
	}
}

func (p *Provider) Name() string { return "openaicompat" }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      wireMessage `json:"message"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
	Created int64        `json:"created,omitempty"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Completion implements llm.Provider.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := wireRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrGenerationTimeout, "completion timed out").WithCause(err)
		}
		return nil, types.NewError(types.ErrGenerationFailed, "completion request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrGenerationFailed, "read completion body").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		var we wireError
		_ = json.Unmarshal(raw, &we)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, types.NewError(types.ErrGenerationFailed,
			fmt.Sprintf("completion status %d: %s", resp.StatusCode, we.Error.Message)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(retryable)
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return nil, types.NewError(types.ErrGenerationFailed, "decode completion body").WithCause(err)
	}

	out := &llm.ChatResponse{
		ID:       wr.ID,
		Provider: p.Name(),
		Model:    wr.Model,
		Choices:  make([]llm.ChatChoice, 0, len(wr.Choices)),
	}
	if wr.Created > 0 {
		out.CreatedAt = time.Unix(wr.Created, 0)
	}
	if wr.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		}
	}
	for _, c := range wr.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message:      llm.Message{Role: llm.Role(c.Message.Role), Content: c.Message.Content},
		})
	}

	p.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("choices", len(out.Choices)),
	)

	return out, nil
}
