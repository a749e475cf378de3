package geo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/example/carpool/internal/models"
)

// RedisGeo implements Geo on top of Redis GEO commands, keeping all ride
// pickup points in a single geo set.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

// NewRedisGeoWithClient wires an existing client, used by the consumer.
func NewRedisGeoWithClient(c *redis.Client, key string) *RedisGeo {
	return &RedisGeo{client: c, key: key}
}

func (r *RedisGeo) Add(ctx context.Context, rideID string, pos models.Coord) error {
	return r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      rideID,
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (r *RedisGeo) Nearby(ctx context.Context, center models.Coord, maxMeters float64) ([]Hit, error) {
	locs, err := r.client.GeoSearchLocation(ctx, r.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     maxMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(locs))
	for _, l := range locs {
		hits = append(hits, Hit{RideID: l.Name, Distance: l.Dist})
	}
	return hits, nil
}

func (r *RedisGeo) Close() error { return r.client.Close() }
