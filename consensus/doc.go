// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

/*
Package consensus decides whether a round's recorded opinions agree.

Evaluate is a pure function of a round's opinion set and decision; it never
calls a generation backend. Two independent signals are combined: the
decision declaring termination, and the overlap heuristic requiring at least
two distinct experts to share a normalized hypothesis and at least two to
share a normalized test. Either signal is sufficient.

The overlap path only applies to panels of at least MinPanelSize experts.
Agreement between the members of a one- or two-expert panel is not
deliberative consensus; the panel size is a design invariant, not an
incidental default.
*/
package consensus
