// Package config defines the application's configuration structure and
// loading logic. Values come from an optional config.yaml and from
// EXPORT_-prefixed environment variables, with environment taking
// precedence; the result is validated before the process starts serving.
package config
