// Package cli defines the Cobra command tree for the webbundle CLI. Each
// file in this package registers one top-level command (build, validate,
// list, etc.) with the root command. Commands load the project
// configuration, delegate to internal/build for the work, and only handle
// flag parsing and output formatting.
package cli
