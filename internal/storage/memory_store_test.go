package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/carpool/internal/models"
)

func testRide(driver string) *models.Ride {
	return &models.Ride{
		DriverID:      driver,
		Pickup:        "Campus North Gate",
		PickupCoords:  models.Coord{Lng: 77.61, Lat: 12.93},
		Dropoff:       "Airport",
		DropoffCoords: models.Coord{Lng: 77.70, Lat: 13.19},
		Time:          time.Now().Add(2 * time.Hour),
		Seats:         3,
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	bad := testRide("d1")
	bad.Seats = 0
	if _, err := s.Create(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero seats, got %v", err)
	}

	bad = testRide("d1")
	bad.PickupCoords.Lat = 91
	if _, err := s.Create(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad latitude, got %v", err)
	}

	bad = testRide("d1")
	bad.DropoffCoords.Lng = -200
	if _, err := s.Create(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad longitude, got %v", err)
	}

	id, err := s.Create(ctx, testRide("d1"))
	if err != nil {
		t.Fatalf("valid ride rejected: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || len(got.Passengers) != 0 {
		t.Fatalf("unexpected stored ride: %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendPassengerConditions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, testRide("d1"))

	for _, u := range []string{"u1", "u2", "u3"} {
		ok, err := s.AppendPassenger(ctx, id, u)
		if err != nil || !ok {
			t.Fatalf("append %s: ok=%v err=%v", u, ok, err)
		}
	}

	// duplicate
	if ok, _ := s.AppendPassenger(ctx, id, "u1"); ok {
		t.Fatal("duplicate append accepted")
	}
	// full
	if ok, _ := s.AppendPassenger(ctx, id, "u4"); ok {
		t.Fatal("append accepted on full ride")
	}
	r, _ := s.Get(ctx, id)
	if len(r.Passengers) != 3 {
		t.Fatalf("expected 3 passengers, got %d", len(r.Passengers))
	}

	if _, err := s.AppendPassenger(ctx, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemovePassenger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, testRide("d1"))
	_, _ = s.AppendPassenger(ctx, id, "u1")

	ok, err := s.RemovePassenger(ctx, id, "u1")
	if err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.RemovePassenger(ctx, id, "u1"); ok {
		t.Fatal("second remove reported success")
	}
	r, _ := s.Get(ctx, id)
	if len(r.Passengers) != 0 {
		t.Fatalf("expected empty passengers, got %v", r.Passengers)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, testRide("d1"))
	_, _ = s.AppendPassenger(ctx, id, "u1")

	snap, _ := s.Get(ctx, id)
	_, _ = s.AppendPassenger(ctx, id, "u2")
	if len(snap.Passengers) != 1 {
		t.Fatal("snapshot observed a later mutation")
	}
}

func TestFindWithinRadius(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	near := testRide("d1")
	near.Pickup = "Near"
	near.PickupCoords = models.Coord{Lng: 0.01, Lat: 0}
	far := testRide("d2")
	far.Pickup = "Far"
	far.PickupCoords = models.Coord{Lng: 0.04, Lat: 0}
	outside := testRide("d3")
	outside.Pickup = "Outside"
	outside.PickupCoords = models.Coord{Lng: 2, Lat: 0}

	_, _ = s.Create(ctx, far)
	_, _ = s.Create(ctx, near)
	_, _ = s.Create(ctx, outside)

	got, err := s.FindWithinRadius(ctx, models.Coord{Lng: 0, Lat: 0}, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(got))
	}
	if got[0].Ride.Pickup != "Near" || got[1].Ride.Pickup != "Far" {
		t.Fatalf("not ordered by distance: %s, %s", got[0].Ride.Pickup, got[1].Ride.Pickup)
	}
	if got[0].Distance <= 0 || got[0].Distance >= got[1].Distance {
		t.Fatalf("suspicious distances: %v, %v", got[0].Distance, got[1].Distance)
	}
}

func TestFindByTextFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := testRide("d1")
	a.Pickup, a.Dropoff = "Central Station", "Tech Park"
	b := testRide("d2")
	b.Pickup, b.Dropoff = "North Station", "Old Town"
	_, _ = s.Create(ctx, a)
	_, _ = s.Create(ctx, b)

	got, _ := s.FindByTextFilter(ctx, "station", "", 10)
	if len(got) != 2 {
		t.Fatalf("case-insensitive pickup match failed: %d", len(got))
	}
	got, _ = s.FindByTextFilter(ctx, "central", "tech", 10)
	if len(got) != 1 || got[0].Dropoff != "Tech Park" {
		t.Fatalf("combined filter failed: %+v", got)
	}
	got, _ = s.FindByTextFilter(ctx, "", "", 1)
	if len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	got, _ = s.FindByTextFilter(ctx, "", "", 0)
	if len(got) != 2 {
		t.Fatalf("zero limit should mean unlimited: %d", len(got))
	}
}

func TestFindByDriverAndPassenger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id1, _ := s.Create(ctx, testRide("d1"))
	_, _ = s.Create(ctx, testRide("d2"))
	_, _ = s.AppendPassenger(ctx, id1, "u1")

	byDriver, _ := s.FindByDriver(ctx, "d1")
	if len(byDriver) != 1 || byDriver[0].ID != id1 {
		t.Fatalf("FindByDriver: %+v", byDriver)
	}
	byPassenger, _ := s.FindByPassenger(ctx, "u1")
	if len(byPassenger) != 1 || byPassenger[0].ID != id1 {
		t.Fatalf("FindByPassenger: %+v", byPassenger)
	}
	none, _ := s.FindByPassenger(ctx, "u9")
	if len(none) != 0 {
		t.Fatalf("expected no rides, got %d", len(none))
	}
}
