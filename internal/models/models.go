package models

import "time"

type Coord struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate lies inside the WGS84 bounds.
func (c Coord) Valid() bool {
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Ride is a single offered carpool trip. Seats is fixed at creation;
// Passengers is mutated only through the store's conditional primitives.
type Ride struct {
	ID            string    `json:"rideId"`
	DriverID      string    `json:"driverId"`
	Pickup        string    `json:"pickup"`
	PickupCoords  Coord     `json:"pickupCoords"`
	Dropoff       string    `json:"dropoff"`
	DropoffCoords Coord     `json:"dropoffCoords"`
	Time          time.Time `json:"time"`
	Seats         int       `json:"seats"`
	Passengers    []string  `json:"passengers"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasPassenger reports whether userID currently holds a seat.
func (r *Ride) HasPassenger(userID string) bool {
	for _, p := range r.Passengers {
		if p == userID {
			return true
		}
	}
	return false
}

// SeatsLeft never goes below zero even if the record is inconsistent.
func (r *Ride) SeatsLeft() int {
	left := r.Seats - len(r.Passengers)
	if left < 0 {
		return 0
	}
	return left
}

type User struct {
	ID           string    `json:"userId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Gender       string    `json:"gender,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RideDistance is a ride annotated with its great-circle distance from a
// query point, the store's native radius-query output.
type RideDistance struct {
	Ride     Ride
	Distance float64 // meters
}

type RideWithScore struct {
	Ride       Ride    `json:"ride"`
	Distance   float64 `json:"distanceMeters"`
	MatchScore int     `json:"matchScore"`
}

type DriverStats struct {
	TotalRidesOffered        int     `json:"totalRidesOffered"`
	TotalPassengersCarried   int     `json:"totalPassengersCarried"`
	AveragePassengersPerRide float64 `json:"averagePassengersPerRide"`
}

type Availability struct {
	RideID         string `json:"rideId"`
	TotalSeats     int    `json:"totalSeats"`
	SeatsTaken     int    `json:"seatsTaken"`
	RemainingSeats int    `json:"remainingSeats"`
	Status         string `json:"status"` // "Available" or "Full"
}

type RouteCount struct {
	Pickup    string `json:"from"`
	Dropoff   string `json:"to"`
	RideCount int    `json:"rideCount"`
}

// RideEvent is published to the ride-events topic on lifecycle changes.
type RideEvent struct {
	Type      string    `json:"type"` // ride_created, passenger_joined, passenger_cancelled
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id"`
	UserID    string    `json:"user_id,omitempty"`
	Pickup    Coord     `json:"pickup_coords"`
	SeatsLeft int       `json:"seats_left"`
	At        time.Time `json:"at"`
}
