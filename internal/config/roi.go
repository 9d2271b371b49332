package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/tracilink/internal/protocol"
	"github.com/danmuck/tracilink/internal/protocol/codec"
	"github.com/danmuck/tracilink/internal/roster"
	"gopkg.in/yaml.v3"
)

// ROIFile is the on-disk region of interest:
//
//	roads: [e1, e2]
//	rects:
//	  - lower_left: [0, 0]
//	    upper_right: [100, 50]
type ROIFile struct {
	Roads []string
	Rects []roster.Rect
}

type roiDocument struct {
	Roads []string       `yaml:"roads"`
	Rects []rectDocument `yaml:"rects"`
}

type rectDocument struct {
	LowerLeft  []float64 `yaml:"lower_left"`
	UpperRight []float64 `yaml:"upper_right"`
}

// LoadROIFile reads a YAML region of interest. Rect orientation is checked
// later by roster.NewROI.
func LoadROIFile(path string) (ROIFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ROIFile{}, &protocol.ConfigError{Field: "roi_file", Reason: err.Error()}
	}
	var doc roiDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ROIFile{}, &protocol.ConfigError{Field: "roi_file", Reason: err.Error()}
	}
	out := ROIFile{Roads: normalizeList(doc.Roads)}
	for i, r := range doc.Rects {
		if len(r.LowerLeft) != 2 || len(r.UpperRight) != 2 {
			return ROIFile{}, &protocol.ConfigError{
				Field:  fmt.Sprintf("roi_file.rects[%d]", i),
				Reason: "corners need exactly two coordinates",
			}
		}
		out.Rects = append(out.Rects, roster.Rect{
			LowerLeft:  codec.Position2D{X: r.LowerLeft[0], Y: r.LowerLeft[1]},
			UpperRight: codec.Position2D{X: r.UpperRight[0], Y: r.UpperRight[1]},
		})
	}
	return out, nil
}

// ParseRects parses "x1,y1-x2,y2" rectangles.
func ParseRects(raw []string) ([]roster.Rect, error) {
	out := make([]roster.Rect, 0, len(raw))
	for i, s := range raw {
		r, err := ParseRect(s)
		if err != nil {
			return nil, &protocol.ConfigError{Field: fmt.Sprintf("roi_rects[%d]", i), Reason: err.Error()}
		}
		out = append(out, r)
	}
	return out, nil
}

func ParseRect(s string) (roster.Rect, error) {
	lower, upper, ok := splitRect(strings.TrimSpace(s))
	if !ok {
		return roster.Rect{}, fmt.Errorf("expected x1,y1-x2,y2, got %q", s)
	}
	ll, err := parsePoint(lower)
	if err != nil {
		return roster.Rect{}, err
	}
	ur, err := parsePoint(upper)
	if err != nil {
		return roster.Rect{}, err
	}
	return roster.Rect{LowerLeft: ll, UpperRight: ur}, nil
}

// splitRect finds the corner separator, skipping minus signs that start a
// coordinate or an exponent.
func splitRect(s string) (string, string, bool) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", "", false
	}
	for i := comma + 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		prev := strings.TrimRight(s[comma+1:i], " ")
		if prev == "" {
			continue
		}
		if last := prev[len(prev)-1]; last == 'e' || last == 'E' {
			continue
		}
		return s[:i], s[i+1:], true
	}
	return "", "", false
}

func parsePoint(s string) (codec.Position2D, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return codec.Position2D{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return codec.Position2D{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return codec.Position2D{}, err
	}
	return codec.Position2D{X: x, Y: y}, nil
}
