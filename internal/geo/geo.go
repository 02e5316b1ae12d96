package geo

import (
	"math"

	"stayalive/internal/domain"
	"stayalive/pkg/e"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers (haversine).
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Nearest returns the candidate closest to (lat, lng). Each candidate's
// distance is computed exactly once. On equal distance the earliest candidate
// in the slice wins, so the result is deterministic for a given input order.
// Returns e.ErrNoCandidates when the slice is empty.
func Nearest(lat, lng float64, candidates []domain.RescuerPosition) (domain.RescuerPosition, error) {
	if len(candidates) == 0 {
		return domain.RescuerPosition{}, e.ErrNoCandidates
	}

	best := candidates[0]
	bestDist := DistanceKm(lat, lng, best.Lat, best.Lng)
	for _, c := range candidates[1:] {
		if d := DistanceKm(lat, lng, c.Lat, c.Lng); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best, nil
}
