package traci

import (
	"fmt"
	"math"
	"time"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/protocol/schema"
)

// Forever is the end time used for open ended subscriptions.
const Forever = time.Duration(math.MaxInt32) * time.Millisecond

// MillisToDuration converts a wire millisecond count.
func MillisToDuration(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// DurationToMillis truncates d to whole milliseconds, clamped to int32.
func DurationToMillis(d time.Duration) int32 {
	ms := d.Milliseconds()
	switch {
	case ms > math.MaxInt32:
		return math.MaxInt32
	case ms < math.MinInt32:
		return math.MinInt32
	}
	return int32(ms)
}

// SecondsToDuration converts wire seconds, rounded to the nearest
// microsecond to absorb float noise.
func SecondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

func DurationToSeconds(d time.Duration) float64 {
	return d.Seconds()
}

// TimeValue encodes d the way the negotiated API carries times.
func (c *Client) TimeValue(d time.Duration) codec.Value {
	if c.caps.Has(schema.FeatureDoubleTime) {
		return codec.Double(DurationToSeconds(d))
	}
	return codec.Int(DurationToMillis(d))
}

// TimeTag is the type tag of a time value at the negotiated API.
func (c *Client) TimeTag() codec.Tag {
	if c.caps.Has(schema.FeatureDoubleTime) {
		return codec.TagDouble
	}
	return codec.TagInteger
}

// DurationOf decodes a time value of either encoding.
func DurationOf(v codec.Value) time.Duration {
	if v.Tag == codec.TagDouble {
		return SecondsToDuration(v.Double)
	}
	return MillisToDuration(v.Int)
}

// writeTime appends an untagged time to a payload.
func (c *Client) writeTime(b *codec.Buffer, d time.Duration) {
	b.WriteRaw(c.TimeValue(d))
}

// readTime consumes an untagged time from b.
func (c *Client) readTime(b *codec.Buffer) time.Duration {
	return DurationOf(b.ReadRaw(c.TimeTag()))
}

func (c *Client) getTime(group uint8, id string, variable uint8) (time.Duration, error) {
	v, err := c.Get(group, id, variable, c.TimeTag())
	return DurationOf(v), err
}

func (c *Client) requireFeature(f schema.Feature) error {
	if c.caps.Has(f) {
		return nil
	}
	return fmt.Errorf("%w: %s not available at api %d", protocol.ErrUnsupportedAPI, f, c.caps.APIVersion)
}
