// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

/*
Package types defines the shared error taxonomy of the workflow processor.

Two tiers of failure exist. Request-level errors (UNKNOWN_COMMAND,
INVALID_PARAMETERS) abort a call before any step executes. Aggregate-level
conditions (WORKFLOW_FAILED, PIPELINE_FAILED, BATCH_FAILED,
MAX_FAILURES_EXCEEDED, INTERNAL_ERROR) are surfaced only as a success=false
flag plus a human-readable message on the final response. Step-level failures
are never errors at all: they are recorded as failed step results.

Error is a structured error carrying an ErrorCode, a message, and optional
metadata, built with chainable With* methods:

	err := types.NewError(types.ErrToolNotFound, "no such tool").
	    WithTool("format").
	    WithRetryable(false)
*/
package types
