// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

// Package deliberation drives a session through its round state machine.
//
// Each round is: open, collect the full panel's opinions, synthesise a
// decision, evaluate consensus. The orchestrator repeats that until the
// round budget runs out, or, under the stop-on-consensus policy, until a
// round reaches consensus. The default policy spends the whole budget and
// reports where consensus was first observed.
package deliberation
