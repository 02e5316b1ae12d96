package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"stayalive/internal/domain"
)

const positionKeyPrefix = "rescuer:position:"

type storedPosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PositionStore keeps one live position per rescuer. Every write refreshes
// the TTL, so a rescuer that stops reporting silently drops out of the
// candidate set after the staleness window.
type PositionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPositionStore(r *Redis, ttl time.Duration) *PositionStore {
	return &PositionStore{client: r.Client, ttl: ttl}
}

func (s *PositionStore) Set(ctx context.Context, pos domain.RescuerPosition) error {
	b, err := json.Marshal(storedPosition{Lat: pos.Lat, Lng: pos.Lng})
	if err != nil {
		return fmt.Errorf("marshalling position: %w", err)
	}
	return s.client.Set(ctx, formatKey(pos.RescuerID), b, s.ttl).Err()
}

// Get returns nil without error when the rescuer has no known position.
func (s *PositionStore) Get(ctx context.Context, rescuerID uuid.UUID) (*domain.RescuerPosition, error) {
	data, err := s.client.Get(ctx, formatKey(rescuerID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting position: %w", err)
	}
	var sp storedPosition
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("unmarshalling position: %w", err)
	}
	return &domain.RescuerPosition{RescuerID: rescuerID, Lat: sp.Lat, Lng: sp.Lng}, nil
}

func (s *PositionStore) Delete(ctx context.Context, rescuerID uuid.UUID) error {
	if err := s.client.Del(ctx, formatKey(rescuerID)).Err(); err != nil {
		return fmt.Errorf("deleting position: %w", err)
	}
	return nil
}

// All lists every live position. Each entry is consistent on its own; the
// listing as a whole is not a cross-key atomic snapshot.
func (s *PositionStore) All(ctx context.Context) ([]domain.RescuerPosition, error) {
	var res []domain.RescuerPosition

	iter := s.client.Scan(ctx, 0, positionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := uuid.Parse(strings.TrimPrefix(key, positionKeyPrefix))
		if err != nil {
			continue
		}
		pos, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if pos == nil {
			// Expired between SCAN and GET.
			continue
		}
		res = append(res, *pos)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning positions: %w", err)
	}
	return res, nil
}

func formatKey(rescuerID uuid.UUID) string {
	return positionKeyPrefix + rescuerID.String()
}
