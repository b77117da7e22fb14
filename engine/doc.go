// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

/*
Package engine implements the workflow processor: a synchronous, in-process
executor for caller-supplied workflow requests.

# Execution modes

  - pipeline — an ordered list of tool steps run strictly one at a time,
    with a per-step failure policy (halt, continue, rollback)
  - batch    — independent file operations run under a max_parallel
    concurrency cap with a max_failures circuit breaker
  - hybrid   — a pipeline phase followed by a batch phase; the batch phase
    never runs when the pipeline phase fails

# Contract

The engine holds no state between calls. Every Process invocation validates
the request, dispatches work through the injected dispatch.Dispatcher, and
returns a single aggregated Response. Step failures are data, not errors:
a failing dispatcher call becomes a failed StepResult and execution proceeds
according to the active policy. The only failures reported without step
results are request-level ones (UNKNOWN_COMMAND, INVALID_PARAMETERS), and
even an internal panic is converted into a well-formed failure response.

Batch results are index-stable: a result slot is reserved per operation at
submission time, so step_results is ordered by submission regardless of
completion order. Once failed operations reach max_failures, no further
operations are submitted; operations already in flight drain and their slots
are still filled.
*/
package engine
