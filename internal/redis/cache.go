package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	RouteCacheTTL  = 5 * time.Minute  // Fares change rarely, via admin action
	TicketCacheTTL = 30 * time.Second // Ticket status flips on validation
)

// Key prefixes
const (
	routeCachePrefix  = "cache:route:"
	ticketCachePrefix = "cache:ticket:"
)

// CachedRoute represents a cached route with its current fare.
type CachedRoute struct {
	ID          string `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	BasePrice   string `json:"base_price"`
	Active      bool   `json:"active"`
}

// CachedTicket represents the cached validation view of a ticket.
type CachedTicket struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	RouteID  string `json:"route_id"`
	Status   string `json:"status"`
	TravelAt int64  `json:"travel_at"`
}

// GetRoute retrieves a route from cache.
func (s *CacheStore) GetRoute(ctx context.Context, routeID string) (*CachedRoute, error) {
	data, err := s.client.Get(ctx, routeCachePrefix+routeID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var route CachedRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// SetRoute stores a route in cache.
func (s *CacheStore) SetRoute(ctx context.Context, route *CachedRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, routeCachePrefix+route.ID, data, RouteCacheTTL).Err()
}

// InvalidateRoute removes a route from cache. Called after a fare update
// so scans never price against a stale fare for longer than one round trip.
func (s *CacheStore) InvalidateRoute(ctx context.Context, routeID string) error {
	return s.client.Del(ctx, routeCachePrefix+routeID).Err()
}

// GetTicket retrieves a ticket validation view from cache.
func (s *CacheStore) GetTicket(ctx context.Context, ticketID string) (*CachedTicket, error) {
	data, err := s.client.Get(ctx, ticketCachePrefix+ticketID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var ticket CachedTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetTicket stores a ticket validation view in cache.
func (s *CacheStore) SetTicket(ctx context.Context, ticket *CachedTicket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, ticketCachePrefix+ticket.ID, data, TicketCacheTTL).Err()
}

// InvalidateTicket removes a ticket from cache after its status changes.
func (s *CacheStore) InvalidateTicket(ctx context.Context, ticketID string) error {
	return s.client.Del(ctx, ticketCachePrefix+ticketID).Err()
}
