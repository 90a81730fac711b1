// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

/*
Package llm defines the contract between the deliberation engine and the
text-generation backend.

The engine only ever needs one capability from a backend: turn a message list
into text, reporting whether the output was truncated. Provider is that
contract; ChatRequest/ChatResponse mirror the OpenAI-compatible wire shape so
adapters stay thin. Generation is the engine-facing view of a response: the
first choice's text plus the truncation signal derived from its finish
reason.

RateLimitedProvider wraps any Provider with a token-bucket limiter so that a
deliberation session cannot burst-call the backend.
*/
package llm
