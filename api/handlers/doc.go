// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

// Package handlers implements the HTTP surface of the deliberation engine:
// session lifecycle, deliberation runs, decision retrieval, and health.
// Every response uses the unified Response envelope.
package handlers
