// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

// Package metrics provides internal Prometheus metrics collection for the
// workflow processor. This package is internal and should not be imported
// by external projects.
package metrics
