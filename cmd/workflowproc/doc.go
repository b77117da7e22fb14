// Copyright (c) Workflowproc Authors.
// Licensed under the MIT License.

// Command workflowproc executes workflow requests from the command line.
// It reads a JSON request describing a pipeline, batch, or hybrid workflow,
// runs it against the built-in tool registry, and writes the JSON response
// to stdout. Configuration comes from an optional YAML file plus
// WORKFLOWPROC_* environment variables.
package main
