package runner

import (
	"sync/atomic"

	"github.com/danmuck/tracilink/internal/roster"
	"github.com/rs/zerolog"
)

// LogPeerFactory creates peers that only log their lifecycle. It stands in
// for a real network stack when tracictl runs headless.
type LogPeerFactory struct {
	Log zerolog.Logger

	created   atomic.Int64
	destroyed atomic.Int64
}

func (f *LogPeerFactory) NewPeer(id string, index int, class roster.ActorClass, template string) (roster.Peer, error) {
	f.created.Add(1)
	f.Log.Debug().
		Str("id", id).
		Int("index", index).
		Stringer("class", class).
		Str("template", template).
		Msg("peer created")
	return &logPeer{id: id, factory: f}, nil
}

// Live is the number of peers created and not yet destroyed.
func (f *LogPeerFactory) Live() int64 { return f.created.Load() - f.destroyed.Load() }

type logPeer struct {
	id      string
	factory *LogPeerFactory
	state   roster.PeerState
}

func (p *logPeer) Update(state roster.PeerState) {
	p.state = state
	p.factory.Log.Trace().
		Str("id", p.id).
		Float64("x", state.Position.X).
		Float64("y", state.Position.Y).
		Float64("heading", state.Heading).
		Float64("speed", state.Speed).
		Str("road", state.RoadID).
		Msg("peer update")
}

func (p *logPeer) SetParked(parked bool) {
	p.state.Parked = parked
	p.factory.Log.Debug().Str("id", p.id).Bool("parked", parked).Msg("peer parking")
}

func (p *logPeer) Destroy() {
	p.factory.destroyed.Add(1)
	p.factory.Log.Debug().Str("id", p.id).Msg("peer destroyed")
}
