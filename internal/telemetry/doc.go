// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

// Package telemetry wires the workflow processor into the OpenTelemetry
// SDK. Init configures OTLP gRPC exporters for traces and metrics and
// registers the global providers; when telemetry is disabled in the
// configuration, the global providers stay noop and no network
// connections are made.
package telemetry
