// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

/*
Package session owns deliberation session state.

Store is an in-memory registry keyed by session identifier. State is
ephemeral: nothing survives the process, by contract. All mutation is routed
through named operations (Start, End, BeginRound, RecordOpinion,
RecordDecision) so callers never write Round or Decision contents directly;
read operations hand out deep copies.

Mutation is serialized per session. Cross-session operations are fully
independent and never contend on a shared lock beyond the registry map
itself.
*/
package session
