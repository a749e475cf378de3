// Package query composes the geo index, match scorer and ride store into the
// read-side operations: nearby search, text search and aggregate statistics.
package query

import (
	"context"
	"errors"
	"sort"

	"github.com/example/carpool/internal/geo"
	"github.com/example/carpool/internal/match"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/storage"
)

const (
	searchLimit      = 50
	popularRoutesTop = 5
)

type Service struct {
	store storage.RideStore
	geo   geo.Geo // optional; store radius scan is the fallback
}

func NewService(store storage.RideStore, g geo.Geo) *Service {
	return &Service{store: store, geo: g}
}

// Nearby returns rides whose pickup is within maxMeters of center, ranked by
// match score descending. Ties break by ascending distance, then ride id, so
// the ordering is fully deterministic.
func (s *Service) Nearby(ctx context.Context, center models.Coord, maxMeters float64) ([]models.RideWithScore, error) {
	observability.NearbyQueries.Inc()

	candidates, err := s.candidates(ctx, center, maxMeters)
	if err != nil {
		return nil, err
	}

	out := make([]models.RideWithScore, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, models.RideWithScore{
			Ride:       c.Ride,
			Distance:   c.Distance,
			MatchScore: match.Score(c.Distance, maxMeters, c.Ride.Seats, len(c.Ride.Passengers)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Ride.ID < out[j].Ride.ID
	})
	return out, nil
}

// candidates prefers the geo index and resolves each hit against the store;
// without an index it falls back to the store's own radius scan.
func (s *Service) candidates(ctx context.Context, center models.Coord, maxMeters float64) ([]models.RideDistance, error) {
	if s.geo == nil {
		return s.store.FindWithinRadius(ctx, center, maxMeters)
	}
	hits, err := s.geo.Nearby(ctx, center, maxMeters)
	if err != nil {
		return nil, err
	}
	out := make([]models.RideDistance, 0, len(hits))
	for _, h := range hits {
		ride, err := s.store.Get(ctx, h.RideID)
		if err != nil {
			// Index may lag the store; skip dangling entries.
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, models.RideDistance{Ride: *ride, Distance: h.Distance})
	}
	return out, nil
}

// Search filters rides by case-insensitive pickup/dropoff substrings, at
// most 50 results. Empty filters match everything.
func (s *Service) Search(ctx context.Context, pickup, dropoff string) ([]models.Ride, error) {
	return s.store.FindByTextFilter(ctx, pickup, dropoff, searchLimit)
}

// DriverStats aggregates the rides a driver has offered. A driver with no
// rides gets an all-zero result, never a NaN average.
func (s *Service) DriverStats(ctx context.Context, driverID string) (models.DriverStats, error) {
	rides, err := s.store.FindByDriver(ctx, driverID)
	if err != nil {
		return models.DriverStats{}, err
	}
	stats := models.DriverStats{TotalRidesOffered: len(rides)}
	if len(rides) == 0 {
		return stats, nil
	}
	for _, r := range rides {
		stats.TotalPassengersCarried += len(r.Passengers)
	}
	stats.AveragePassengersPerRide = float64(stats.TotalPassengersCarried) / float64(len(rides))
	return stats, nil
}

// Availability reports seat occupancy for one ride.
func (s *Service) Availability(ctx context.Context, rideID string) (models.Availability, error) {
	ride, err := s.store.Get(ctx, rideID)
	if err != nil {
		return models.Availability{}, err
	}
	av := models.Availability{
		RideID:         ride.ID,
		TotalSeats:     ride.Seats,
		SeatsTaken:     len(ride.Passengers),
		RemainingSeats: ride.Seats - len(ride.Passengers),
	}
	if av.RemainingSeats <= 0 {
		av.Status = "Full"
	} else {
		av.Status = "Available"
	}
	return av, nil
}

// PopularRoutes groups rides by (pickup, dropoff) and returns the five most
// frequent pairs. Grouping is stable, so ties keep first-seen order.
func (s *Service) PopularRoutes(ctx context.Context) ([]models.RouteCount, error) {
	rides, err := s.store.FindByTextFilter(ctx, "", "", 0)
	if err != nil {
		return nil, err
	}

	type key struct{ pickup, dropoff string }
	counts := make(map[key]int)
	order := make([]key, 0)
	for _, r := range rides {
		k := key{r.Pickup, r.Dropoff}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	routes := make([]models.RouteCount, 0, len(order))
	for _, k := range order {
		routes = append(routes, models.RouteCount{Pickup: k.pickup, Dropoff: k.dropoff, RideCount: counts[k]})
	}
	sort.SliceStable(routes, func(i, j int) bool { return routes[i].RideCount > routes[j].RideCount })
	if len(routes) > popularRoutesTop {
		routes = routes[:popularRoutesTop]
	}
	return routes, nil
}

// RidesForUser returns the rides a user drives and the rides they joined.
func (s *Service) RidesForUser(ctx context.Context, userID string) (driven, joined []models.Ride, err error) {
	driven, err = s.store.FindByDriver(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	joined, err = s.store.FindByPassenger(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return driven, joined, nil
}
