package geo

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/example/carpool/internal/models"
)

// Hit is a ride pickup point found inside a radius query.
type Hit struct {
	RideID   string
	Distance float64 // meters from the query center
}

// Geo is the minimal index interface required by the query layer: rides are
// keyed by pickup location and searched by radius.
type Geo interface {
	Add(ctx context.Context, rideID string, pos models.Coord) error
	Nearby(ctx context.Context, center models.Coord, maxMeters float64) ([]Hit, error)
}

// Index is an in-memory scan-based implementation. Fine for tests and small
// deployments; swap in RedisGeo for anything larger.
type Index struct {
	mu      sync.RWMutex
	pickups map[string]models.Coord
}

func NewIndex() *Index {
	return &Index{pickups: make(map[string]models.Coord)}
}

func (g *Index) Add(_ context.Context, rideID string, pos models.Coord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pickups[rideID] = pos
	return nil
}

func (g *Index) Nearby(_ context.Context, center models.Coord, maxMeters float64) ([]Hit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	hits := make([]Hit, 0, len(g.pickups))
	for id, pos := range g.pickups {
		d := Haversine(center.Lat, center.Lng, pos.Lat, pos.Lng)
		if d <= maxMeters {
			hits = append(hits, Hit{RideID: id, Distance: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].RideID < hits[j].RideID
	})
	return hits, nil
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
