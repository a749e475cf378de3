// Package reservation enforces seat capacity for ride joins and cancels.
// Business outcomes are explicit results, not errors: only infrastructure
// failures travel on the error path.
package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/storage"
)

type JoinResult int

const (
	Joined JoinResult = iota
	AlreadyJoined
	RideFull
	IsOwnRide
	JoinRideNotFound
)

func (r JoinResult) String() string {
	switch r {
	case Joined:
		return "joined"
	case AlreadyJoined:
		return "already_joined"
	case RideFull:
		return "ride_full"
	case IsOwnRide:
		return "own_ride"
	case JoinRideNotFound:
		return "not_found"
	}
	return "unknown"
}

type CancelResult int

const (
	Cancelled CancelResult = iota
	NotAPassenger
	CancelRideNotFound
)

func (r CancelResult) String() string {
	switch r {
	case Cancelled:
		return "cancelled"
	case NotAPassenger:
		return "not_a_passenger"
	case CancelRideNotFound:
		return "not_found"
	}
	return "unknown"
}

// EventPublisher pushes ride lifecycle events to the event stream.
// Publishing is best-effort and never blocks a reservation decision.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.RideEvent) error
}

// Notifier tells a connected driver that seats on their ride changed.
type Notifier interface {
	NotifySeatChange(driverID string, ev models.RideEvent)
}

type Engine struct {
	store    storage.RideStore
	events   EventPublisher // optional
	notifier Notifier       // optional
	logger   *slog.Logger
}

func NewEngine(store storage.RideStore, events EventPublisher, notifier Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, events: events, notifier: notifier, logger: logger}
}

// Join reserves a seat for userID on rideID. The decision is made by the
// store's atomic append alone; the re-fetch below only explains a rejection
// and must never be used to accept.
func (e *Engine) Join(ctx context.Context, rideID, userID string) (JoinResult, error) {
	ride, err := e.store.Get(ctx, rideID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return JoinRideNotFound, nil
		}
		return JoinRideNotFound, err
	}
	if ride.DriverID == userID {
		observability.JoinRejectionsTotal.WithLabelValues(IsOwnRide.String()).Inc()
		return IsOwnRide, nil
	}

	ok, err := e.store.AppendPassenger(ctx, rideID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return JoinRideNotFound, nil
		}
		return JoinRideNotFound, err
	}
	if ok {
		observability.JoinsTotal.Inc()
		e.emit(ctx, "passenger_joined", rideID, userID)
		return Joined, nil
	}

	// Diagnostic read: the join already failed, we only report why.
	after, err := e.store.Get(ctx, rideID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return JoinRideNotFound, nil
		}
		return JoinRideNotFound, err
	}
	if after.HasPassenger(userID) {
		observability.JoinRejectionsTotal.WithLabelValues(AlreadyJoined.String()).Inc()
		return AlreadyJoined, nil
	}
	observability.JoinRejectionsTotal.WithLabelValues(RideFull.String()).Inc()
	return RideFull, nil
}

// Cancel releases userID's seat on rideID.
func (e *Engine) Cancel(ctx context.Context, rideID, userID string) (CancelResult, error) {
	ride, err := e.store.Get(ctx, rideID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return CancelRideNotFound, nil
		}
		return CancelRideNotFound, err
	}
	if !ride.HasPassenger(userID) {
		return NotAPassenger, nil
	}

	ok, err := e.store.RemovePassenger(ctx, rideID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return CancelRideNotFound, nil
		}
		return CancelRideNotFound, err
	}
	if !ok {
		// Raced with another cancel of the same user.
		return NotAPassenger, nil
	}
	e.emit(ctx, "passenger_cancelled", rideID, userID)
	return Cancelled, nil
}

func (e *Engine) emit(ctx context.Context, eventType, rideID, userID string) {
	ride, err := e.store.Get(ctx, rideID)
	if err != nil {
		e.logger.Warn("event snapshot read failed", "ride_id", rideID, "error", err)
		return
	}
	ev := models.RideEvent{
		Type:      eventType,
		RideID:    ride.ID,
		DriverID:  ride.DriverID,
		UserID:    userID,
		Pickup:    ride.PickupCoords,
		SeatsLeft: ride.SeatsLeft(),
		At:        time.Now().UTC(),
	}
	if e.events != nil {
		if err := e.events.Publish(ctx, ev); err != nil {
			e.logger.Warn("ride event publish failed", "ride_id", rideID, "type", eventType, "error", err)
		}
	}
	if e.notifier != nil {
		e.notifier.NotifySeatChange(ride.DriverID, ev)
	}
}
