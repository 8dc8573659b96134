// Package app wires the application together: it builds the logger, loads
// the configuration and test documents through the injected loader,
// assembles the provider stack, and drives the run engine and report.
package app
