package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	wanderStep = 0.0005
	returnStep = 0.0008
	returnJit  = 0.0002
)

// Walker produces random-walk positions. Not safe for concurrent use.
type Walker struct {
	rnd *rand.Rand
}

func NewWalker(seed uint64) *Walker {
	return &Walker{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Start returns a random point within the zone's bounding square.
func (w *Walker) Start(z Zone) Point {
	return clamp(Point{
		Lat: z.Lat + w.uniform(z.Radius),
		Lng: z.Lng + w.uniform(z.Radius),
	})
}

// Step moves p one tick. Inside twice the zone radius the move is uniform in
// ±wanderStep; further out the courier heads back to the centre.
func (w *Walker) Step(p Point, z Zone) Point {
	dLat := p.Lat - z.Lat
	dLng := p.Lng - z.Lng
	dist := math.Hypot(dLat, dLng)

	if dist > 2*z.Radius {
		return clamp(Point{
			Lat: p.Lat - returnStep*dLat/dist + w.uniform(returnJit),
			Lng: p.Lng - returnStep*dLng/dist + w.uniform(returnJit),
		})
	}
	return clamp(Point{
		Lat: p.Lat + w.uniform(wanderStep),
		Lng: p.Lng + w.uniform(wanderStep),
	})
}

// Phone returns a French mobile number.
func (w *Walker) Phone() string {
	return fmt.Sprintf("06%08d", w.rnd.IntN(90000000)+10000000)
}

// uniform returns a value in [-r, r).
func (w *Walker) uniform(r float64) float64 {
	return (w.rnd.Float64()*2 - 1) * r
}

func clamp(p Point) Point {
	p.Lat = math.Max(-90, math.Min(90, p.Lat))
	p.Lng = math.Max(-180, math.Min(180, p.Lng))
	return p
}
