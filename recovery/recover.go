// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/internal/metrics"
	"github.com/BaSui01/medquorum/llm"
	"github.com/BaSui01/medquorum/types"
)

// ContinuationPrompt is the single follow-up sent when the backend reports
// truncation with no usable text.
const ContinuationPrompt = "Continue from the prior response and deliver the full consensus analysis. Stay within the specified length constraints."

const (
	// DefaultTimeout bounds each individual backend call.
	DefaultTimeout = 90 * time.Second

	// rationaleExcerptLimit bounds the raw-text excerpt used when a decision
	// carries no explicit rationale section.
	rationaleExcerptLimit = 500
)

// Fallback list contents used when generation or extraction fails outright.
var (
	fallbackHypotheses = []string{"requires further review"}
	fallbackTests      = []string{"specialist consultation"}
)

// Config tunes the recovery pipeline.
type Config struct {
	// Timeout applies to each backend call individually, so a continuation
	// attempt gets a fresh budget.
	Timeout time.Duration

	// Model, MaxTokens and Temperature are forwarded on every request.
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns a Config with conservative limits.
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		MaxTokens:   2048,
		Temperature: 0.3,
	}
}

// Recoverer drives generation with timeout, truncation continuation, section
// extraction and fallback substitution. Its Opinion and Decision methods
// never return an error.
type Recoverer struct {
	provider  llm.Provider
	cfg       Config
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates a Recoverer. The collector may be nil.
func New(provider llm.Provider, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Recoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Recoverer{
		provider:  provider,
		cfg:       cfg,
		collector: collector,
		logger:    logger.With(zap.String("component", "recovery")),
	}
}

// Generate runs one completion. When the backend returns empty text together
// with a truncation signal, exactly one continuation request is issued with
// the original messages plus ContinuationPrompt; the continuation's text
// replaces the empty result. Empty text without a truncation signal, and an
// empty continuation, both surface as GENERATION_EMPTY.
func (r *Recoverer) Generate(ctx context.Context, target string, messages []llm.Message) (llm.Generation, error) {
	gen, err := r.complete(ctx, messages)
	if err != nil {
		return llm.Generation{}, err
	}

	if gen.Text == "" && gen.Truncated {
		r.collector.RecoveryContinuation(target)
		r.logger.Info("issuing truncation continuation", zap.String("target", target))

		continued := make([]llm.Message, 0, len(messages)+1)
		continued = append(continued, messages...)
		continued = append(continued, llm.Message{Role: llm.RoleUser, Content: ContinuationPrompt})

		gen, err = r.complete(ctx, continued)
		if err != nil {
			return llm.Generation{}, err
		}
		if gen.Text == "" {
			return gen, types.NewError(types.ErrGenerationTruncated, "truncated response remained empty after continuation")
		}
		return gen, nil
	}

	if gen.Text == "" {
		return gen, types.NewError(types.ErrGenerationEmpty, "backend returned an empty response")
	}
	return gen, nil
}

func (r *Recoverer) complete(ctx context.Context, messages []llm.Message) (llm.Generation, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.provider.Completion(callCtx, &llm.ChatRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Timeout:     r.cfg.Timeout,
	})
	elapsed := time.Since(start)

	if err != nil {
		r.collector.GenerationRequest(r.provider.Name(), "error", elapsed)
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Generation{}, types.NewError(types.ErrGenerationTimeout, "generation deadline exceeded").WithCause(err)
		}
		return llm.Generation{}, err
	}

	r.collector.GenerationRequest(r.provider.Name(), "ok", elapsed)
	return resp.Generation(), nil
}

// Opinion generates and parses a structured expert opinion. Any generation
// or extraction failure yields the fallback opinion instead of an error.
func (r *Recoverer) Opinion(ctx context.Context, expertID string, round int, messages []llm.Message) types.Opinion {
	gen, err := r.Generate(ctx, "opinion", messages)
	if err != nil {
		r.logger.Warn("opinion generation failed, substituting fallback",
			zap.String("expert_id", expertID),
			zap.Int("round", round),
			zap.Error(err))
		r.collector.RecoveryFallback("opinion")
		return FallbackOpinion(expertID, round, err)
	}

	parsed := ParseOpinion(gen.Text)
	if !parsed.Complete() {
		r.logger.Warn("opinion extraction incomplete, substituting fallback",
			zap.String("expert_id", expertID),
			zap.Int("round", round),
			zap.Int("hypotheses", len(parsed.Hypotheses)),
			zap.Int("tests", len(parsed.Tests)))
		r.collector.RecoveryFallback("opinion")
		return FallbackOpinion(expertID, round, types.NewError(types.ErrInvalidOpinion, "required opinion sections missing from response"))
	}

	return types.Opinion{
		ExpertID:      expertID,
		Round:         round,
		Hypotheses:    parsed.Hypotheses,
		Tests:         parsed.Tests,
		Justification: gen.Text,
		Critique:      parsed.Critique,
	}
}

// Decision generates and parses a structured synthesis decision. Any
// generation or extraction failure yields the fallback decision.
func (r *Recoverer) Decision(ctx context.Context, round int, messages []llm.Message) types.Decision {
	gen, err := r.Generate(ctx, "decision", messages)
	if err != nil {
		r.logger.Warn("decision generation failed, substituting fallback",
			zap.Int("round", round),
			zap.Error(err))
		r.collector.RecoveryFallback("decision")
		return FallbackDecision(round, err)
	}

	parsed := ParseDecision(gen.Text)
	if !parsed.Complete() {
		r.logger.Warn("decision extraction incomplete, substituting fallback",
			zap.Int("round", round),
			zap.Int("hypotheses", len(parsed.Hypotheses)),
			zap.Int("tests", len(parsed.Tests)))
		r.collector.RecoveryFallback("decision")
		return FallbackDecision(round, types.NewError(types.ErrInvalidDecision, "required decision sections missing from response"))
	}

	rationale := parsed.Rationale
	if rationale == "" {
		rationale = excerpt(gen.Text, rationaleExcerptLimit)
	}

	return types.Decision{
		Round:             round,
		Hypotheses:        parsed.Hypotheses,
		Tests:             parsed.Tests,
		Rationale:         rationale,
		TerminationReason: parsed.TerminationReason,
	}
}

// FallbackOpinion is the conservative stand-in recorded when an expert's
// response cannot be recovered.
func FallbackOpinion(expertID string, round int, cause error) types.Opinion {
	return types.Opinion{
		ExpertID:      expertID,
		Round:         round,
		Hypotheses:    append([]string(nil), fallbackHypotheses...),
		Tests:         append([]string(nil), fallbackTests...),
		Justification: fmt.Sprintf("response unavailable: %v", cause),
	}
}

// FallbackDecision is the conservative stand-in recorded when a synthesis
// response cannot be recovered. It never declares termination.
func FallbackDecision(round int, cause error) types.Decision {
	return types.Decision{
		Round:      round,
		Hypotheses: append([]string(nil), fallbackHypotheses...),
		Tests:      append([]string(nil), fallbackTests...),
		Rationale:  fmt.Sprintf("synthesis unavailable: %v", cause),
	}
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
