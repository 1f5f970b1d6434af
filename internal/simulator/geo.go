package simulator

import "math"

const earthRadiusMeters = 6371000.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance between a and b in metres.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Direction describes the move from prev to cur with compass letters,
// e.g. "N E". Empty when the point did not move.
func Direction(prev, cur Point) string {
	var ns, ew string
	switch {
	case cur.Lat > prev.Lat:
		ns = "N"
	case cur.Lat < prev.Lat:
		ns = "S"
	}
	switch {
	case cur.Lng > prev.Lng:
		ew = "E"
	case cur.Lng < prev.Lng:
		ew = "W"
	}
	if ns != "" && ew != "" {
		return ns + " " + ew
	}
	return ns + ew
}
