// Package traci is the command dispatcher and the typed accessors built on
// it.
//
// Every accessor funnels through Query, which frames one command, waits for
// the response and refuses to hand out a payload whose status is not OK.
// Get and Set are the two generic shapes all accessors reduce to.
//
// A Client is single threaded: the protocol has no request ids, so commands
// never overlap on one connection. Transport loss and desynchronization are
// sticky; once either happens every later call returns the same error.
package traci
