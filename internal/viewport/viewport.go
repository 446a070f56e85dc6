// Package viewport encodes and decodes the map camera as a deep-link fragment.
//
// The fragment is five "/"-separated numbers in a fixed order:
//
//	zoom/latitude/longitude/bearing/pitch
//
// e.g. "#5/41.4/2.2/0/0". Decoding never produces a partial camera: either all
// five fields parse or the caller falls back to [Default].
package viewport

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Transition describes how the renderer animates into a viewport.
// Only the default viewport carries one.
type Transition struct {
	Duration     time.Duration `json:"duration" doc:"Transition duration" example:"1000000000"`
	Interpolator string        `json:"interpolator" doc:"Interpolation mode" example:"flyTo"`
}

// Viewport is the renderer camera.
type Viewport struct {
	Zoom       float64     `json:"zoom" minimum:"0" maximum:"24" doc:"Zoom level" example:"5"`
	Latitude   float64     `json:"latitude" minimum:"-90" maximum:"90" doc:"Center latitude" example:"41.4"`
	Longitude  float64     `json:"longitude" minimum:"-180" maximum:"180" doc:"Center longitude" example:"2.2"`
	Bearing    float64     `json:"bearing" doc:"Bearing in degrees" example:"0"`
	Pitch      float64     `json:"pitch" doc:"Pitch in degrees" example:"0"`
	Transition *Transition `json:"transition,omitempty" doc:"Initial transition, never set on user-driven changes"`
}

// FlyTo is the interpolation mode of the default viewport.
const FlyTo = "flyTo"

// Default returns the viewport used when no deep-link fragment is present.
func Default() Viewport {
	return Viewport{
		Zoom:      5,
		Latitude:  41.4,
		Longitude: 2.2,
		Transition: &Transition{
			Duration:     1000 * time.Millisecond,
			Interpolator: FlyTo,
		},
	}
}

// Decode parses a "zoom/latitude/longitude/bearing/pitch" fragment.
// A leading "#" is ignored. It reports false unless exactly five finite
// numbers are present and the center is a valid coordinate.
func Decode(fragment string) (Viewport, bool) {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return Viewport{}, false
	}

	parts := strings.Split(fragment, "/")
	if len(parts) != 5 {
		return Viewport{}, false
	}

	var vals [5]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Viewport{}, false
		}
		vals[i] = f
	}

	v := Viewport{
		Zoom:      vals[0],
		Latitude:  vals[1],
		Longitude: vals[2],
		Bearing:   vals[3],
		Pitch:     vals[4],
	}
	if !v.Valid() {
		return Viewport{}, false
	}
	return v, true
}

// FromURL decodes the fragment of a full page address.
func FromURL(raw string) (Viewport, bool) {
	_, frag, ok := strings.Cut(raw, "#")
	if !ok {
		return Viewport{}, false
	}
	return Decode(frag)
}

// Resolve returns the decoded fragment, or [Default] when it is malformed or
// absent. The bool reports whether the fragment was used.
func Resolve(fragment string) (Viewport, bool) {
	if v, ok := Decode(fragment); ok {
		return v, true
	}
	return Default(), false
}

// Encode formats v as a fragment without the leading "#".
func Encode(v Viewport) string {
	return strings.Join([]string{
		formatFloat(v.Zoom),
		formatFloat(v.Latitude),
		formatFloat(v.Longitude),
		formatFloat(v.Bearing),
		formatFloat(v.Pitch),
	}, "/")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Valid reports whether every field is finite and the center is in range.
func (v Viewport) Valid() bool {
	for _, f := range []float64{v.Zoom, v.Latitude, v.Longitude, v.Bearing, v.Pitch} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.Latitude >= -90 && v.Latitude <= 90 &&
		v.Longitude >= -180 && v.Longitude <= 180
}

// WithoutTransition returns a copy of v with no transition.
func (v Viewport) WithoutTransition() Viewport {
	v.Transition = nil
	return v
}

// Center returns the camera center as a lon/lat point.
func (v Viewport) Center() orb.Point {
	return orb.Point{v.Longitude, v.Latitude}
}

// CenterTile returns the tile under the camera center at the current zoom.
func (v Viewport) CenterTile() maptile.Tile {
	z := math.Floor(v.Zoom)
	if z < 0 {
		z = 0
	}
	if z > 24 {
		z = 24
	}
	return maptile.At(v.Center(), maptile.Zoom(z))
}
