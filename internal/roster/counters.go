package roster

import (
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Counters track simulation wide vehicle totals from the six event kinds.
// They are only ever adjusted incrementally.
type Counters struct {
	Active  int
	Driving int
	Parking int
}

func (c Counters) check(event, id string) error {
	if c.Active != c.Driving+c.Parking || c.Active < 0 || c.Driving < 0 || c.Parking < 0 {
		return protocol.Desync(schema.ResponseSubscribeSimulation, protocol.ErrCounterMismatch,
			"counters after %s(%s): active=%d driving=%d parking=%d", event, id, c.Active, c.Driving, c.Parking)
	}
	return nil
}
