package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/carpool/internal/geo"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/storage"
)

func seedRide(t *testing.T, s storage.RideStore, driver, pickup, dropoff string, lng float64, seats int, passengers ...string) string {
	t.Helper()
	id, err := s.Create(context.Background(), &models.Ride{
		DriverID:      driver,
		Pickup:        pickup,
		PickupCoords:  models.Coord{Lng: lng, Lat: 0},
		Dropoff:       dropoff,
		DropoffCoords: models.Coord{Lng: lng + 0.5, Lat: 0.5},
		Time:          time.Now().Add(time.Hour),
		Seats:         seats,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range passengers {
		if ok, err := s.AppendPassenger(context.Background(), id, p); err != nil || !ok {
			t.Fatalf("seed passenger %s: ok=%v err=%v", p, ok, err)
		}
	}
	return id
}

func TestNearbyRankedByScore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	// closest ride is full, the farther one has open seats and must win
	fullID := seedRide(t, store, "d1", "Close", "X", 0.001, 1, "p1")
	openID := seedRide(t, store, "d2", "Farther", "X", 0.02, 4)
	seedRide(t, store, "d3", "Outside", "X", 3, 4)

	svc := NewService(store, nil)
	got, err := svc.Nearby(ctx, models.Coord{Lng: 0, Lat: 0}, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Ride.ID != openID || got[1].Ride.ID != fullID {
		t.Fatalf("not ranked by score: %s then %s", got[0].Ride.ID, got[1].Ride.ID)
	}
	if got[0].MatchScore < got[1].MatchScore {
		t.Fatalf("scores out of order: %d < %d", got[0].MatchScore, got[1].MatchScore)
	}
	for _, r := range got {
		if r.Distance > 5000 {
			t.Fatalf("result beyond radius: %v", r.Distance)
		}
	}
}

func TestNearbyThroughGeoIndex(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	id := seedRide(t, store, "d1", "A", "B", 0.01, 2)

	idx := geo.NewIndex()
	ride, _ := store.Get(ctx, id)
	_ = idx.Add(ctx, id, ride.PickupCoords)
	// dangling index entry must be skipped, not fail the query
	_ = idx.Add(ctx, "deleted-ride", models.Coord{Lng: 0.001, Lat: 0})

	svc := NewService(store, idx)
	got, err := svc.Nearby(ctx, models.Coord{Lng: 0, Lat: 0}, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Ride.ID != id {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestSearchLimit(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for i := 0; i < 60; i++ {
		seedRide(t, store, "d1", "Station", "Park", 0.01, 2)
	}
	svc := NewService(store, nil)
	got, err := svc.Search(ctx, "station", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 results, got %d", len(got))
	}
}

func TestDriverStats(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil)

	empty, err := svc.DriverStats(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalRidesOffered != 0 || empty.TotalPassengersCarried != 0 || empty.AveragePassengersPerRide != 0 {
		t.Fatalf("zero-ride driver stats not all zero: %+v", empty)
	}

	seedRide(t, store, "d1", "A", "B", 0.01, 4, "p1", "p2", "p3")
	seedRide(t, store, "d1", "A", "C", 0.02, 2)

	stats, err := svc.DriverStats(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRidesOffered != 2 || stats.TotalPassengersCarried != 3 {
		t.Fatalf("bad totals: %+v", stats)
	}
	if stats.AveragePassengersPerRide != 1.5 {
		t.Fatalf("bad average: %v", stats.AveragePassengersPerRide)
	}
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil)

	id := seedRide(t, store, "d1", "A", "B", 0.01, 3, "a", "b", "c")
	av, err := svc.Availability(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if av.RemainingSeats != 0 || av.Status != "Full" || av.SeatsTaken != 3 {
		t.Fatalf("full ride availability wrong: %+v", av)
	}

	id2 := seedRide(t, store, "d1", "A", "B", 0.01, 3, "a")
	av2, _ := svc.Availability(ctx, id2)
	if av2.RemainingSeats != 2 || av2.Status != "Available" {
		t.Fatalf("open ride availability wrong: %+v", av2)
	}

	if _, err := svc.Availability(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPopularRoutes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil)

	// route popularity: A->B x3, C->D x2, then four singles (E..H)
	for i := 0; i < 3; i++ {
		seedRide(t, store, "d1", "A", "B", 0.01, 2)
	}
	for i := 0; i < 2; i++ {
		seedRide(t, store, "d1", "C", "D", 0.01, 2)
	}
	for _, p := range []string{"E", "F", "G", "H"} {
		seedRide(t, store, "d1", p, p+"-end", 0.01, 2)
	}

	routes, err := svc.PopularRoutes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 5 {
		t.Fatalf("expected top 5, got %d", len(routes))
	}
	if routes[0].Pickup != "A" || routes[0].RideCount != 3 {
		t.Fatalf("top route wrong: %+v", routes[0])
	}
	if routes[1].Pickup != "C" || routes[1].RideCount != 2 {
		t.Fatalf("second route wrong: %+v", routes[1])
	}
	// singles tie: first-seen order decides
	if routes[2].Pickup != "E" || routes[3].Pickup != "F" || routes[4].Pickup != "G" {
		t.Fatalf("tie order not first-seen: %+v", routes[2:])
	}
}

func TestRidesForUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewService(store, nil)

	drivenID := seedRide(t, store, "u1", "A", "B", 0.01, 2)
	joinedID := seedRide(t, store, "d2", "C", "D", 0.01, 2, "u1")

	driven, joined, err := svc.RidesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(driven) != 1 || driven[0].ID != drivenID {
		t.Fatalf("driven wrong: %+v", driven)
	}
	if len(joined) != 1 || joined[0].ID != joinedID {
		t.Fatalf("joined wrong: %+v", joined)
	}
}
