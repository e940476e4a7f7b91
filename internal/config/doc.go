// Package config loads the project-level build settings from webbundle.yaml
// and WEBBUNDLE_* environment variables. Values are decoded into a typed
// Config; relative paths are resolved against the project root.
package config
