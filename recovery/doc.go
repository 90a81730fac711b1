// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

// Package recovery turns raw generation output into the structured opinion
// and decision contracts, tolerating the ways a generation backend fails.
//
// The pipeline is: generate with a per-call timeout, issue at most one
// continuation request when the backend returns empty text with a truncation
// signal, parse the section markers out of the raw text, and substitute a
// conservative fallback value when anything in that chain comes up empty.
// The Opinion and Decision entry points never return an error; a failure is
// a fallback value, not an exception.
package recovery
