// Package config defines the format-agnostic model of a loaded
// configuration tree and its test suite. The model is produced by a
// Loader implementation (see internal/hcl) and consumed by the engines;
// it is immutable once loaded.
package config
