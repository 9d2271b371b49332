package roster

import (
	"github.com/danmuck/tracilink/internal/coords"
	"github.com/danmuck/tracilink/internal/protocol/codec"
)

type fakeServer struct {
	subscribes   []string
	unsubscribes []string
	classes      map[string]string
	unsubErr     error
}

func (s *fakeServer) SubscribeVehicle(id string) error {
	s.subscribes = append(s.subscribes, id)
	return nil
}

func (s *fakeServer) UnsubscribeVehicle(id string) error {
	s.unsubscribes = append(s.unsubscribes, id)
	return s.unsubErr
}

func (s *fakeServer) VehicleClass(id string) (string, error) {
	if c, ok := s.classes[id]; ok {
		return c, nil
	}
	return "passenger", nil
}

type fakePeer struct {
	id        string
	updates   []PeerState
	parked    bool
	destroyed int
}

func (p *fakePeer) Update(s PeerState)    { p.updates = append(p.updates, s) }
func (p *fakePeer) SetParked(parked bool) { p.parked = parked }
func (p *fakePeer) Destroy()              { p.destroyed++ }

type fakeFactory struct {
	peers map[string][]*fakePeer
}

func (f *fakeFactory) NewPeer(id string, index int, class ActorClass, template string) (Peer, error) {
	if f.peers == nil {
		f.peers = make(map[string][]*fakePeer)
	}
	p := &fakePeer{id: id}
	f.peers[id] = append(f.peers[id], p)
	return p, nil
}

type recordingListener struct {
	managed []string
	removed []string
}

func (l *recordingListener) OnManaged(id string, index int, class ActorClass) {
	l.managed = append(l.managed, id)
}

func (l *recordingListener) OnRemoved(id string, index int) {
	l.removed = append(l.removed, id)
}

func testMapper() coords.Mapper {
	m, err := coords.NewMapper(codec.Position2D{X: 0, Y: 0}, codec.Position2D{X: 1000, Y: 1000}, 25)
	if err != nil {
		panic(err)
	}
	return m
}

func allTemplates() map[ActorClass]string {
	out := make(map[ActorClass]string, len(Classes))
	for _, c := range Classes {
		out[c] = c.String() + "-peer"
	}
	return out
}

func update(id string, x, y float64) Update {
	return Update{ID: id, Position: codec.Position2D{X: x, Y: y}, RoadID: "e1", Speed: 10, Angle: 90}
}
