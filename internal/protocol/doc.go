// Package protocol owns the traffic control protocol wire contract.
//
// Ownership boundary:
// - codec: typed scalar/compound encoding over an in-memory buffer
// - frame: command framing and socket-level message framing
// - schema: command groups, variable ids, status codes, capability table
// - session: socket ownership, connect retry, raw message I/O
//
// The error taxonomy shared by every layer lives in this package.
package protocol
