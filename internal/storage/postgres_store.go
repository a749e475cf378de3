package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/carpool/internal/models"
)

// PostgresStore persists rides in a single table with a text[] passenger
// column. The conditional append/remove are single UPDATE statements, so
// Postgres row locking gives us per-ride serializability for free.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storageErr(err)
	}
	if err := db.Ping(); err != nil {
		return nil, storageErr(err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

// DB exposes the underlying handle so other stores (users) can share the
// same pool and migrations can run against it.
func (p *PostgresStore) DB() *sql.DB { return p.db }

const rideColumns = `id, driver_id, pickup, pickup_lng, pickup_lat, dropoff, dropoff_lng, dropoff_lat, depart_at, seats, passengers, created_at`

func (p *PostgresStore) Create(ctx context.Context, r *models.Ride) (string, error) {
	if err := validateRide(r); err != nil {
		return "", err
	}
	id := uuid.New().String()
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, r.DriverID,
		r.Pickup, r.PickupCoords.Lng, r.PickupCoords.Lat,
		r.Dropoff, r.DropoffCoords.Lng, r.DropoffCoords.Lat,
		r.Time, r.Seats, pq.StringArray{}, createdAt,
	)
	if err != nil {
		return "", storageErr(err)
	}
	return id, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
	r, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return r, nil
}

// AppendPassenger is the atomic check-and-append: membership and capacity are
// tested inside the UPDATE itself, never in a separate read.
func (p *PostgresStore) AppendPassenger(ctx context.Context, id, userID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rides
		SET passengers = array_append(passengers, $2)
		WHERE id = $1
		  AND NOT passengers @> ARRAY[$2]
		  AND cardinality(passengers) < seats`,
		id, userID,
	)
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	if n == 1 {
		return true, nil
	}
	// Rejected or unknown id: callers distinguish via Get.
	if err := p.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (p *PostgresStore) RemovePassenger(ctx context.Context, id, userID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rides
		SET passengers = array_remove(passengers, $2)
		WHERE id = $1
		  AND passengers @> ARRAY[$2]`,
		id, userID,
	)
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	if n == 1 {
		return true, nil
	}
	if err := p.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (p *PostgresStore) FindWithinRadius(ctx context.Context, center models.Coord, maxMeters float64) ([]models.RideDistance, error) {
	// Haversine evaluated in SQL so ordering and the radius cut both happen
	// in one round trip.
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+rideColumns+`, distance FROM (
			SELECT *, 2 * 6371000 * asin(sqrt(
				pow(sin(radians(pickup_lat - $1) / 2), 2) +
				cos(radians($1)) * cos(radians(pickup_lat)) *
				pow(sin(radians(pickup_lng - $2) / 2), 2)
			)) AS distance
			FROM rides
		) nearby
		WHERE distance <= $3
		ORDER BY distance ASC, id ASC`,
		center.Lat, center.Lng, maxMeters,
	)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := make([]models.RideDistance, 0)
	for rows.Next() {
		var rd models.RideDistance
		var passengers pq.StringArray
		if err := rows.Scan(
			&rd.Ride.ID, &rd.Ride.DriverID,
			&rd.Ride.Pickup, &rd.Ride.PickupCoords.Lng, &rd.Ride.PickupCoords.Lat,
			&rd.Ride.Dropoff, &rd.Ride.DropoffCoords.Lng, &rd.Ride.DropoffCoords.Lat,
			&rd.Ride.Time, &rd.Ride.Seats, &passengers, &rd.Ride.CreatedAt,
			&rd.Distance,
		); err != nil {
			return nil, storageErr(err)
		}
		rd.Ride.Passengers = passengers
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func (p *PostgresStore) FindByTextFilter(ctx context.Context, pickup, dropoff string, limit int) ([]models.Ride, error) {
	return p.queryRides(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE ($1 = '' OR pickup ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR dropoff ILIKE '%' || $2 || '%')
		ORDER BY created_at ASC, id ASC
		LIMIT NULLIF($3, 0)`,
		pickup, dropoff, limit,
	)
}

func (p *PostgresStore) FindByDriver(ctx context.Context, driverID string) ([]models.Ride, error) {
	return p.queryRides(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE driver_id = $1
		ORDER BY created_at ASC, id ASC`,
		driverID,
	)
}

func (p *PostgresStore) FindByPassenger(ctx context.Context, userID string) ([]models.Ride, error) {
	return p.queryRides(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE passengers @> ARRAY[$1]
		ORDER BY created_at ASC, id ASC`,
		userID,
	)
}

func (p *PostgresStore) queryRides(ctx context.Context, query string, args ...any) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := make([]models.Ride, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func (p *PostgresStore) exists(ctx context.Context, id string) error {
	var found bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, id,
	).Scan(&found)
	if err != nil {
		return storageErr(err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var passengers pq.StringArray
	err := row.Scan(
		&r.ID, &r.DriverID,
		&r.Pickup, &r.PickupCoords.Lng, &r.PickupCoords.Lat,
		&r.Dropoff, &r.DropoffCoords.Lng, &r.DropoffCoords.Lat,
		&r.Time, &r.Seats, &passengers, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Passengers = passengers
	return &r, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
