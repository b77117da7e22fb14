// Package config loads workflow processor configuration.
//
// Settings resolve in three layers: built-in defaults, then an optional
// YAML file, then environment variable overrides. The Loader is a small
// builder so callers can pick the file path and env prefix before Load.
package config
