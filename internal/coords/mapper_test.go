package coords

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/tracilink/internal/protocol"
)

const eps = 1e-9

func newTestMapper(t *testing.T) Mapper {
	t.Helper()
	m, err := NewMapper(ProtocolCoord{X: -120.5, Y: 40}, ProtocolCoord{X: 880, Y: 1540.25}, 25)
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	return m
}

func TestToLocalFlipsYAxis(t *testing.T) {
	m := newTestMapper(t)
	ll := m.ToLocal(ProtocolCoord{X: -120.5, Y: 40})
	if math.Abs(ll.X-25) > eps || math.Abs(ll.Y-(1500.25+25)) > eps {
		t.Fatalf("lower left mapped to %+v", ll)
	}
	ur := m.ToLocal(ProtocolCoord{X: 880, Y: 1540.25})
	if math.Abs(ur.X-(1000.5+25)) > eps || math.Abs(ur.Y-25) > eps {
		t.Fatalf("upper right mapped to %+v", ur)
	}
}

func TestSizeCoversBoundsAndMargin(t *testing.T) {
	m := newTestMapper(t)
	size := m.Size()
	if math.Abs(size.X-1050.5) > eps || math.Abs(size.Y-1550.25) > eps {
		t.Fatalf("unexpected size %+v", size)
	}
	ll := m.ToLocal(ProtocolCoord{X: -120.5 - 25, Y: 40 - 25})
	if math.Abs(ll.X) > eps || math.Abs(ll.Y-size.Y) > eps {
		t.Fatalf("margin corner mapped to %+v, size %+v", ll, size)
	}
}

func TestCoordinateInverseLaw(t *testing.T) {
	m := newTestMapper(t)
	for i := 0; i <= 20; i++ {
		for j := 0; j <= 20; j++ {
			p := ProtocolCoord{
				X: -120.5 + float64(i)*(1000.5/20),
				Y: 40 + float64(j)*(1500.25/20),
			}
			back := m.ToProtocol(m.ToLocal(p))
			if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
				t.Fatalf("round trip %+v -> %+v", p, back)
			}
		}
	}
}

func TestAngleConventions(t *testing.T) {
	cases := []struct {
		deg float64
		rad float64
	}{
		{90, 0},             // east
		{0, math.Pi / 2},    // north
		{180, -math.Pi / 2}, // south
		{270, -math.Pi},     // west wraps to the closed lower bound
		{-90, -math.Pi},     // west again
	}
	for _, tc := range cases {
		if got := ToLocalAngle(tc.deg); math.Abs(got-tc.rad) > eps {
			t.Fatalf("ToLocalAngle(%v)=%v want %v", tc.deg, got, tc.rad)
		}
	}
	if got := ToProtocolAngle(0); math.Abs(got-90) > eps {
		t.Fatalf("ToProtocolAngle(0)=%v", got)
	}
	if got := ToProtocolAngle(-math.Pi / 2); math.Abs(got-(-180)) > eps {
		t.Fatalf("ToProtocolAngle(-pi/2)=%v", got)
	}
}

func TestAngleInverseLaw(t *testing.T) {
	const n = 720
	for i := 0; i < n; i++ {
		a := -math.Pi + float64(i)*(2*math.Pi/n)
		back := ToLocalAngle(ToProtocolAngle(a))
		if d := angularDistance(back, a); d > 1e-9 {
			t.Fatalf("angle round trip %v -> %v", a, back)
		}
		if back < -math.Pi || back >= math.Pi {
			t.Fatalf("angle %v outside [-pi, pi)", back)
		}
	}
}

func TestNewMapperRejectsInvertedBounds(t *testing.T) {
	_, err := NewMapper(ProtocolCoord{X: 10, Y: 10}, ProtocolCoord{X: 0, Y: 20}, 0)
	var ce *protocol.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func angularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	return math.Min(d, 2*math.Pi-d)
}
