// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

// Package panel runs the expert side of a deliberation round.
//
// A fixed-size panel of experts each produce a structured opinion on the
// case. In the first round an expert analyses the case cold; in revision
// rounds it additionally sees every panellist's prior opinion (its own
// included in the record, excluded from its colleague view) and the prior
// round's synthesis rationale. The Coordinator fans the panel out, waits for
// every member, and records all opinions atomically; the Supervisor then
// synthesises the round into a decision.
package panel
