package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/carpool/internal/geo"
	"github.com/example/carpool/internal/models"
)

// MemoryStore keeps rides in a mutex-guarded map. A single lock per store is
// enough here: the only contended mutation is the passenger list, and the
// check-and-append runs entirely under the write lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
	order []string // creation order, keeps scans deterministic
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) Create(_ context.Context, r *models.Ride) (string, error) {
	if err := validateRide(r); err != nil {
		return "", err
	}
	stored := cloneRide(r)
	stored.ID = uuid.New().String()
	stored.Passengers = []string{}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[stored.ID] = stored
	m.order = append(m.order, stored.ID)
	return stored.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRide(r), nil
}

func (m *MemoryStore) AppendPassenger(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.HasPassenger(userID) || len(r.Passengers) >= r.Seats {
		return false, nil
	}
	r.Passengers = append(r.Passengers, userID)
	return true, nil
}

func (m *MemoryStore) RemovePassenger(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	kept := r.Passengers[:0]
	removed := false
	for _, p := range r.Passengers {
		if p == userID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	r.Passengers = kept
	return removed, nil
}

func (m *MemoryStore) FindWithinRadius(_ context.Context, center models.Coord, maxMeters float64) ([]models.RideDistance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RideDistance, 0)
	for _, id := range m.order {
		r := m.rides[id]
		d := geo.Haversine(center.Lat, center.Lng, r.PickupCoords.Lat, r.PickupCoords.Lng)
		if d <= maxMeters {
			out = append(out, models.RideDistance{Ride: *cloneRide(r), Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Ride.ID < out[j].Ride.ID
	})
	return out, nil
}

func (m *MemoryStore) FindByTextFilter(_ context.Context, pickup, dropoff string, limit int) ([]models.Ride, error) {
	pickup = strings.ToLower(pickup)
	dropoff = strings.ToLower(dropoff)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, id := range m.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		r := m.rides[id]
		if pickup != "" && !strings.Contains(strings.ToLower(r.Pickup), pickup) {
			continue
		}
		if dropoff != "" && !strings.Contains(strings.ToLower(r.Dropoff), dropoff) {
			continue
		}
		out = append(out, *cloneRide(r))
	}
	return out, nil
}

func (m *MemoryStore) FindByDriver(_ context.Context, driverID string) ([]models.Ride, error) {
	return m.filter(func(r *models.Ride) bool { return r.DriverID == driverID })
}

func (m *MemoryStore) FindByPassenger(_ context.Context, userID string) ([]models.Ride, error) {
	return m.filter(func(r *models.Ride) bool { return r.HasPassenger(userID) })
}

func (m *MemoryStore) filter(keep func(*models.Ride) bool) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, id := range m.order {
		if r := m.rides[id]; keep(r) {
			out = append(out, *cloneRide(r))
		}
	}
	return out, nil
}

// cloneRide gives callers a private snapshot so no goroutine ever observes a
// passenger list mid-mutation.
func cloneRide(r *models.Ride) *models.Ride {
	c := *r
	c.Passengers = append([]string(nil), r.Passengers...)
	return &c
}
