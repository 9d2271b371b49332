package roster

import (
	"fmt"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
)

// Rect is an axis aligned rectangle in protocol coordinates.
type Rect struct {
	LowerLeft  codec.Position2D
	UpperRight codec.Position2D
}

func (r Rect) Contains(p codec.Position2D) bool {
	return p.X >= r.LowerLeft.X && p.X <= r.UpperRight.X &&
		p.Y >= r.LowerLeft.Y && p.Y <= r.UpperRight.Y
}

// ROI is the region of interest. An actor is inside when its road is listed
// or its position falls in any rectangle. An empty ROI contains everything.
type ROI struct {
	Roads []string
	Rects []Rect

	roads map[string]struct{}
}

// NewROI validates the rectangles and indexes the road list.
func NewROI(roads []string, rects []Rect) (ROI, error) {
	for i, r := range rects {
		if r.LowerLeft.X > r.UpperRight.X || r.LowerLeft.Y > r.UpperRight.Y {
			return ROI{}, &protocol.ConfigError{
				Field:  fmt.Sprintf("roi.rects[%d]", i),
				Reason: "lower left corner is above or right of upper right corner",
			}
		}
	}
	roi := ROI{Roads: roads, Rects: rects, roads: make(map[string]struct{}, len(roads))}
	for _, road := range roads {
		roi.roads[road] = struct{}{}
	}
	return roi, nil
}

// Empty reports whether no filter is configured.
func (r ROI) Empty() bool { return len(r.Roads) == 0 && len(r.Rects) == 0 }

func (r ROI) Contains(road string, p codec.Position2D) bool {
	if r.Empty() {
		return true
	}
	if r.roads != nil {
		if _, ok := r.roads[road]; ok {
			return true
		}
	} else {
		for _, allowed := range r.Roads {
			if allowed == road {
				return true
			}
		}
	}
	for _, rect := range r.Rects {
		if rect.Contains(p) {
			return true
		}
	}
	return false
}
