// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

/*
Package dispatch defines the Tool Dispatcher contract consumed by the workflow
engine, together with composable dispatcher implementations.

The engine never owns a global tool table. A Dispatcher is injected at engine
construction, which keeps tool registration in one place and makes test
doubles trivial.

  - Registry           — named ToolFunc / OperationFunc tables
  - WithBreaker        — per-tool circuit breaker (closed/open/half-open)
  - WithRateLimit      — token-bucket rate limiting in front of a dispatcher
  - WithInstrumentation — structured logs and Prometheus metrics per call
  - Reverter           — optional compensation hook for rollback policies

Middlewares wrap any Dispatcher and forward the Reverter capability of the
dispatcher they wrap, so decoration never strips rollback support.
*/
package dispatch
