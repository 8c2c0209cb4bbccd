// Package cli implements the apikit command line: calling configured
// downstream APIs, running the gateway and inspecting configuration.
package cli
