package domain

import "math"

// Position is a WGS-84 latitude/longitude pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both coordinates are inside the WGS-84 range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// GridCell identifies a KMA forecast grid square. Cells are derived from a
// Position and never persisted.
type GridCell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Lambert conformal conic projection constants for the KMA 5 km forecast grid.
// These are fixed published values, not runtime configuration.
const (
	earthRadiusKM = 6371.00877 // earth radius
	gridSpacingKM = 5.0        // grid cell size
	stdParallel1  = 30.0       // first standard parallel (deg)
	stdParallel2  = 60.0       // second standard parallel (deg)
	originLonDeg  = 126.0      // origin meridian (deg)
	originLatDeg  = 38.0       // origin parallel (deg)
	gridOriginX   = 43.0       // grid offset of the origin
	gridOriginY   = 136.0
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// projection holds constants derived once from the fixed parameters above.
type projection struct {
	re float64 // earth radius in grid units
	sn float64 // cone factor
	sf float64 // scale factor at the first standard parallel
	ro float64 // projected radius at the origin parallel
}

var proj = newProjection()

func newProjection() projection {
	re := earthRadiusKM / gridSpacingKM
	slat1 := stdParallel1 * degToRad
	slat2 := stdParallel2 * degToRad
	olat := originLatDeg * degToRad

	sn := math.Log(math.Cos(slat1)/math.Cos(slat2)) /
		math.Log(math.Tan(math.Pi/4+slat2/2)/math.Tan(math.Pi/4+slat1/2))
	sf := math.Pow(math.Tan(math.Pi/4+slat1/2), sn) * math.Cos(slat1) / sn
	ro := re * sf / math.Pow(math.Tan(math.Pi/4+olat/2), sn)

	return projection{re: re, sn: sn, sf: sf, ro: ro}
}

// ToGrid projects a position onto the forecast grid. Pure and deterministic;
// out-of-range positions are the caller's responsibility to reject first.
func ToGrid(p Position) GridCell {
	ra := proj.re * proj.sf /
		math.Pow(math.Tan(math.Pi/4+p.Latitude*degToRad/2), proj.sn)

	theta := p.Longitude*degToRad - originLonDeg*degToRad
	if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	if theta < -math.Pi {
		theta += 2 * math.Pi
	}
	theta *= proj.sn

	x := int(math.Floor(ra*math.Sin(theta) + gridOriginX + 0.5))
	y := int(math.Floor(proj.ro - ra*math.Cos(theta) + gridOriginY + 0.5))
	return GridCell{X: x, Y: y}
}

// FromGrid inverts the projection, returning the cell's representative
// position. Used for round-trip verification; accuracy is bounded by the
// cell quantization in ToGrid.
func FromGrid(c GridCell) Position {
	xn := float64(c.X) - gridOriginX
	yn := proj.ro - float64(c.Y) + gridOriginY

	ra := math.Sqrt(xn*xn + yn*yn)
	if proj.sn < 0 {
		ra = -ra
	}
	alat := 2*math.Atan(math.Pow(proj.re*proj.sf/ra, 1/proj.sn)) - math.Pi/2

	var theta float64
	switch {
	case xn == 0:
		theta = 0
	case yn == 0:
		theta = math.Pi / 2
		if xn < 0 {
			theta = -theta
		}
	default:
		theta = math.Atan2(xn, yn)
	}
	alon := theta/proj.sn + originLonDeg*degToRad

	return Position{Latitude: alat * radToDeg, Longitude: alon * radToDeg}
}
