// Package session owns the one socket a client holds to the simulator.
//
// Ownership boundary:
// - connect with linear retry/backoff while the server starts listening
// - u32 length prefixed message I/O with optional deadlines
// - sticky termination once the socket fails
package session
