// Package tools provides host helpers shared by the session layer.
//
// Ownership boundary:
// - free local port allocation
// - simulator child process spawn and teardown
package tools
