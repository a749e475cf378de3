// Package match computes the 0-100 suitability score used to rank nearby
// rides: closer pickup plus more open seats means a higher score.
package match

import "math"

const (
	distanceWeight = 50.0
	seatPoints     = 10
	seatCap        = 50
	maxScore       = 100
)

// Score combines a linear distance decay (50 points at zero distance, 0 at
// the search radius) with 10 points per open seat capped at 50. Distances
// beyond maxDistanceMeters are excluded upstream and never scored here.
func Score(distanceMeters, maxDistanceMeters float64, seatsTotal, passengersCount int) int {
	var distScore float64
	if maxDistanceMeters > 0 {
		norm := (maxDistanceMeters - distanceMeters) / maxDistanceMeters
		if norm < 0 {
			norm = 0
		}
		distScore = norm * distanceWeight
	}

	available := seatsTotal - passengersCount
	if available < 0 {
		available = 0
	}
	seatScore := available * seatPoints
	if seatScore > seatCap {
		seatScore = seatCap
	}

	total := int(math.Floor(distScore)) + seatScore
	if total > maxScore {
		total = maxScore
	}
	if total < 0 {
		total = 0
	}
	return total
}
