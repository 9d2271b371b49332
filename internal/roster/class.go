package roster

import (
	"fmt"
	"strings"

	"github.com/danmuck/tracilink/internal/protocol"
)

// ActorClass is the closed set of actor kinds that map to peer templates.
type ActorClass int

const (
	ClassPassenger ActorClass = iota
	ClassPrivate
	ClassEmergency
	ClassBus
	ClassTruck
	ClassBicycle
	ClassPedestrian
)

// Classes lists every ActorClass in declaration order.
var Classes = []ActorClass{
	ClassPassenger,
	ClassPrivate,
	ClassEmergency,
	ClassBus,
	ClassTruck,
	ClassBicycle,
	ClassPedestrian,
}

func (c ActorClass) String() string {
	switch c {
	case ClassPassenger:
		return "passenger"
	case ClassPrivate:
		return "private"
	case ClassEmergency:
		return "emergency"
	case ClassBus:
		return "bus"
	case ClassTruck:
		return "truck"
	case ClassBicycle:
		return "bicycle"
	case ClassPedestrian:
		return "pedestrian"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ParseActorClass maps a server vehicle class name. Anything outside the
// closed set is a *protocol.ConfigError.
func ParseActorClass(raw string) (ActorClass, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range Classes {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, &protocol.ConfigError{Field: "actor_class", Reason: fmt.Sprintf("unknown class %q", raw)}
}
