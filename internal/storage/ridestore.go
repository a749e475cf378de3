package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/carpool/internal/models"
)

var (
	// ErrNotFound is returned when a ride id is unknown.
	ErrNotFound = errors.New("ride not found")
	// ErrValidation wraps all malformed-input failures from Create.
	ErrValidation = errors.New("invalid ride")
	// ErrStorage wraps infrastructure failures. Callers may retry; the
	// store itself never does.
	ErrStorage = errors.New("storage failure")
)

// RideStore defines persistence for rides. AppendPassenger and
// RemovePassenger are the only mutators of a ride's passenger list and must
// be atomic per ride: the capacity/membership check and the write are one
// indivisible operation relative to all other mutators of the same ride.
type RideStore interface {
	// Create assigns an id, validates the record and persists it.
	Create(ctx context.Context, r *models.Ride) (string, error)
	// Get returns a snapshot of one ride, ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.Ride, error)
	// AppendPassenger adds userID iff not already present and a seat is
	// free. Returns false (no error) when the precondition fails.
	AppendPassenger(ctx context.Context, id, userID string) (bool, error)
	// RemovePassenger removes all occurrences of userID. Returns false
	// when the user was not a passenger.
	RemovePassenger(ctx context.Context, id, userID string) (bool, error)
	// FindWithinRadius returns rides whose pickup lies within maxMeters of
	// center, annotated with distance, closest first.
	FindWithinRadius(ctx context.Context, center models.Coord, maxMeters float64) ([]models.RideDistance, error)
	// FindByTextFilter matches pickup/dropoff labels by case-insensitive
	// substring; an empty filter matches everything.
	FindByTextFilter(ctx context.Context, pickup, dropoff string, limit int) ([]models.Ride, error)
	FindByDriver(ctx context.Context, driverID string) ([]models.Ride, error)
	FindByPassenger(ctx context.Context, userID string) ([]models.Ride, error)
}

func validateRide(r *models.Ride) error {
	if r.DriverID == "" {
		return fmt.Errorf("%w: missing driverId", ErrValidation)
	}
	if r.Pickup == "" || r.Dropoff == "" {
		return fmt.Errorf("%w: missing pickup or dropoff label", ErrValidation)
	}
	if r.Seats <= 0 {
		return fmt.Errorf("%w: seats must be positive", ErrValidation)
	}
	if !r.PickupCoords.Valid() || !r.DropoffCoords.Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	return nil
}
