// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

/*
Package types provides the shared data contracts of the deliberation engine.

types is the lowest-level package of the module and depends on nothing
internal. It defines the case snapshot handed to the panel (CaseContext),
the per-round contracts produced by experts and the coordinator (Opinion,
Decision), and the unified error model used across all packages.

Shape validation lives next to the contracts: Opinion.Validate and
Decision.Validate enforce the list caps and non-empty requirements that the
session store checks before anything is recorded.
*/
package types
