// Command gridcheck verifies the forecast grid projection: known reference
// points must land on their documented cells, and the inverse transform must
// round-trip within the cell quantization tolerance. It can also convert a
// single coordinate pair from the command line.
//
// Usage:
//
//	go run ./cmd/gridcheck
//	go run ./cmd/gridcheck -lat 37.5665 -lng 126.9780
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/skyflick/skyflick/internal/domain"
)

// roundTripEpsilon is the tolerated coordinate error after forward+inverse
// projection. Cells are ~5 km, so half a cell is ~0.03 degrees of latitude.
const roundTripEpsilon = 0.05

// referencePoint pairs a well-known location with its documented grid cell.
type referencePoint struct {
	name string
	pos  domain.Position
	cell domain.GridCell
}

var referencePoints = []referencePoint{
	{"Seoul City Hall", domain.Position{Latitude: 37.5665, Longitude: 126.9780}, domain.GridCell{X: 60, Y: 127}},
	{"Busan City Hall", domain.Position{Latitude: 35.1796, Longitude: 129.0756}, domain.GridCell{X: 98, Y: 76}},
	{"Jeju City", domain.Position{Latitude: 33.4996, Longitude: 126.5312}, domain.GridCell{X: 53, Y: 38}},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	lat := flag.Float64("lat", math.NaN(), "latitude to convert")
	lng := flag.Float64("lng", math.NaN(), "longitude to convert")
	flag.Parse()

	if !math.IsNaN(*lat) && !math.IsNaN(*lng) {
		pos := domain.Position{Latitude: *lat, Longitude: *lng}
		if !pos.Valid() {
			fmt.Fprintf(os.Stderr, "coordinates (%v, %v) out of range\n", *lat, *lng)
			os.Exit(1)
		}
		cell := domain.ToGrid(pos)
		fmt.Printf("(%.4f, %.4f) -> grid (%d, %d)\n", *lat, *lng, cell.X, cell.Y)
		return
	}

	phases := []*phase{
		checkReferencePoints(),
		checkRoundTrip(),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkReferencePoints() *phase {
	p := &phase{name: "reference points"}
	for _, ref := range referencePoints {
		got := domain.ToGrid(ref.pos)
		if got != ref.cell {
			p.errorf("%s: got (%d, %d), want (%d, %d)",
				ref.name, got.X, got.Y, ref.cell.X, ref.cell.Y)
		}
	}
	return p
}

// checkRoundTrip sweeps the peninsula and verifies inverse(forward(pos)) is
// within the quantization tolerance.
func checkRoundTrip() *phase {
	p := &phase{name: "forward/inverse round-trip"}
	for lat := 33.0; lat <= 38.5; lat += 0.5 {
		for lng := 125.0; lng <= 130.0; lng += 0.5 {
			pos := domain.Position{Latitude: lat, Longitude: lng}
			back := domain.FromGrid(domain.ToGrid(pos))
			if math.Abs(back.Latitude-lat) > roundTripEpsilon ||
				math.Abs(back.Longitude-lng) > roundTripEpsilon {
				p.errorf("(%.2f, %.2f) round-tripped to (%.4f, %.4f)",
					lat, lng, back.Latitude, back.Longitude)
			}
		}
	}
	return p
}
