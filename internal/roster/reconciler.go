package roster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/danmuck/tracilink/internal/coords"
	"github.com/danmuck/tracilink/internal/observability"
	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is an actor's roster membership.
type State int

const (
	StateSubscribed State = iota
	StateManaged
	StateUnequipped
)

func (s State) String() string {
	switch s {
	case StateSubscribed:
		return "subscribed"
	case StateManaged:
		return "managed"
	case StateUnequipped:
		return "unequipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Update is one atomic kinematic sample for an actor, in protocol units.
type Update struct {
	ID       string
	Position codec.Position2D
	RoadID   string
	Speed    float64
	Angle    float64
	Signals  int32
}

// PeerState is an Update converted to local coordinates.
type PeerState struct {
	Position coords.LocalCoord
	Heading  float64
	RoadID   string
	Speed    float64
	Signals  int32
	Parked   bool
}

// Server is the slice of the dispatcher the roster needs.
type Server interface {
	SubscribeVehicle(id string) error
	UnsubscribeVehicle(id string) error
	VehicleClass(id string) (string, error)
}

// PeerFactory creates the local peer for a newly managed actor.
type PeerFactory interface {
	NewPeer(id string, index int, class ActorClass, template string) (Peer, error)
}

// Listener is told about managed set changes. Optional.
type Listener interface {
	OnManaged(id string, index int, class ActorClass)
	OnRemoved(id string, index int)
}

// Options configures the equip policy and region of interest.
type Options struct {
	// Penetration is the target fraction of in-ROI actors that get a peer.
	Penetration float64
	// Templates maps each class to its peer template. A class with no
	// template stays unequipped.
	Templates map[ActorClass]string
	ROI       ROI
}

func (o Options) Validate() error {
	if math.IsNaN(o.Penetration) || o.Penetration < 0 || o.Penetration > 1 {
		return &protocol.ConfigError{Field: "penetration", Reason: fmt.Sprintf("%v outside [0,1]", o.Penetration)}
	}
	return nil
}

// Reconciler owns the subscribed, managed and unequipped sets for one
// session. It is not safe for concurrent use.
type Reconciler struct {
	server   Server
	factory  PeerFactory
	listener Listener
	mapper   coords.Mapper
	opts     Options
	log      zerolog.Logger

	subscribed map[string]struct{}
	unequipped map[string]struct{}
	// parked holds every parked actor, managed or not.
	parked     map[string]struct{}
	arena      *Arena
	ids        *BiMap
	nextIndex  int
	counters   Counters
}

func New(server Server, factory PeerFactory, mapper coords.Mapper, opts Options) (*Reconciler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if server == nil || factory == nil {
		return nil, errors.New("roster: server and peer factory are required")
	}
	return &Reconciler{
		server:     server,
		factory:    factory,
		mapper:     mapper,
		opts:       opts,
		log:        log.Logger.With().Str("component", "roster").Logger(),
		subscribed: make(map[string]struct{}),
		unequipped: make(map[string]struct{}),
		parked:     make(map[string]struct{}),
		arena:      NewArena(),
		ids:        NewBiMap(),
	}, nil
}

// SetListener installs l for later managed set changes.
func (r *Reconciler) SetListener(l Listener) { r.listener = l }

// Mapping exposes the id <-> index mapping for read only use.
func (r *Reconciler) Mapping() *BiMap { return r.ids }

func (r *Reconciler) Counters() Counters { return r.counters }

// State returns id's roster state. The second result is false for ids the
// roster does not track at all.
func (r *Reconciler) State(id string) (State, bool) {
	switch {
	case r.arena.Contains(id):
		return StateManaged, true
	case hasKey(r.unequipped, id):
		return StateUnequipped, true
	case hasKey(r.subscribed, id):
		return StateSubscribed, true
	}
	return 0, false
}

func (r *Reconciler) Subscribed() []string { return sortedKeys(r.subscribed) }

func (r *Reconciler) Unequipped() []string { return sortedKeys(r.unequipped) }

func (r *Reconciler) Managed() []string {
	out := r.arena.IDs()
	sort.Strings(out)
	return out
}

// Reconcile brings the subscribed set in line with the authoritative id list.
// New ids are subscribed; vanished ids are unsubscribed and dropped from
// every set. Calling it twice with the same ids does nothing the second time.
func (r *Reconciler) Reconcile(authoritative []string) error {
	want := make(map[string]struct{}, len(authoritative))
	for _, id := range authoritative {
		want[id] = struct{}{}
	}

	var toSubscribe, toUnsubscribe []string
	for id := range want {
		if !hasKey(r.subscribed, id) {
			toSubscribe = append(toSubscribe, id)
		}
	}
	for id := range r.subscribed {
		if !hasKey(want, id) {
			toUnsubscribe = append(toUnsubscribe, id)
		}
	}
	sort.Strings(toSubscribe)
	sort.Strings(toUnsubscribe)

	for _, id := range toSubscribe {
		if err := r.server.SubscribeVehicle(id); err != nil {
			return fmt.Errorf("subscribe %q: %w", id, err)
		}
		r.subscribed[id] = struct{}{}
	}
	for _, id := range toUnsubscribe {
		if err := r.server.UnsubscribeVehicle(id); err != nil {
			var pe *protocol.ProtocolError
			if !errors.As(err, &pe) {
				return fmt.Errorf("unsubscribe %q: %w", id, err)
			}
			// The server already dropped the vehicle and its subscription.
			r.log.Debug().Str("object", id).Str("description", pe.Description).Msg("roster.Reconcile unsubscribe of vanished id")
		}
		delete(r.subscribed, id)
		r.remove(id, "vanished")
	}

	if len(toSubscribe) > 0 || len(toUnsubscribe) > 0 {
		r.log.Debug().Int("subscribed", len(toSubscribe)).Int("unsubscribed", len(toUnsubscribe)).Msg("roster.Reconcile")
	}
	r.publish()
	return nil
}

// OnActorUpdate applies one complete kinematic update.
func (r *Reconciler) OnActorUpdate(u Update) error {
	inside := r.opts.ROI.Contains(u.RoadID, u.Position)

	if e, ok := r.arena.get(u.ID); ok {
		if !inside {
			r.remove(u.ID, "left roi")
			r.publish()
			return nil
		}
		e.peer.Update(r.peerState(u, e.parked))
		return nil
	}
	if hasKey(r.unequipped, u.ID) {
		if !inside {
			delete(r.unequipped, u.ID)
			r.publish()
		}
		return nil
	}
	if !inside {
		return nil
	}

	if !r.shouldEquip() {
		r.unequipped[u.ID] = struct{}{}
		r.publish()
		return nil
	}
	if err := r.equip(u); err != nil {
		return err
	}
	r.publish()
	return nil
}

// shouldEquip picks whichever of equip/skip leaves the managed fraction
// closer to the target. Ties equip.
func (r *Reconciler) shouldEquip() bool {
	m := float64(r.arena.Len())
	total := m + float64(len(r.unequipped)) + 1
	target := r.opts.Penetration
	return math.Abs((m+1)/total-target) <= math.Abs(m/total-target)
}

func (r *Reconciler) equip(u Update) error {
	rawClass, err := r.server.VehicleClass(u.ID)
	if err != nil {
		return fmt.Errorf("class of %q: %w", u.ID, err)
	}
	class, err := ParseActorClass(rawClass)
	if err != nil {
		r.log.Error().Str("object", u.ID).Str("class", rawClass).Msg("roster unknown actor class")
		return err
	}
	template := r.opts.Templates[class]
	if template == "" {
		r.log.Debug().Str("object", u.ID).Stringer("class", class).Msg("roster no template, leaving unequipped")
		r.unequipped[u.ID] = struct{}{}
		return nil
	}

	index := r.nextIndex
	parked := hasKey(r.parked, u.ID)
	peer, err := r.factory.NewPeer(u.ID, index, class, template)
	if err != nil {
		return fmt.Errorf("create peer %q: %w", u.ID, err)
	}
	if err := r.arena.insert(u.ID, &entry{peer: peer, index: index, class: class, parked: parked}); err != nil {
		peer.Destroy()
		return err
	}
	r.nextIndex++
	r.ids.put(u.ID, index)
	if parked {
		peer.SetParked(true)
	}
	peer.Update(r.peerState(u, parked))
	if r.listener != nil {
		r.listener.OnManaged(u.ID, index, class)
	}
	r.log.Info().Str("object", u.ID).Int("index", index).Stringer("class", class).Str("template", template).Msg("roster managed")
	return nil
}

func (r *Reconciler) peerState(u Update, parked bool) PeerState {
	return PeerState{
		Position: r.mapper.ToLocal(u.Position),
		Heading:  r.mapper.ToLocalAngle(u.Angle),
		RoadID:   u.RoadID,
		Speed:    u.Speed,
		Signals:  u.Signals,
		Parked:   parked,
	}
}

// remove drops id from the managed and unequipped sets. A managed peer is
// destroyed through the arena, which guarantees it happens once.
func (r *Reconciler) remove(id, reason string) {
	delete(r.unequipped, id)
	index, hadIndex := r.ids.Index(id)
	if !r.arena.Remove(id) {
		return
	}
	r.ids.delete(id)
	if r.listener != nil && hadIndex {
		r.listener.OnRemoved(id, index)
	}
	r.log.Info().Str("object", id).Str("reason", reason).Msg("roster removed")
}

func (r *Reconciler) publish() {
	observability.SetRosterSizes(len(r.subscribed), r.arena.Len(), len(r.unequipped))
	observability.SetVehicleCounts(r.counters.Active, r.counters.Driving, r.counters.Parking)
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
