package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/masapledge/pledge"
)

const issuedChannel = "pledge:events"

// EventService announces engine events on redis pub/sub so the surrounding
// site (counters, outbound mail) can react without coupling to this service.
type EventService struct {
	rdb *redis.Client
}

func NewEventService(redisClient *redis.Client) *EventService {
	return &EventService{
		rdb: redisClient,
	}
}

func (s *EventService) Publish(ctx context.Context, event pledge.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, issuedChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}
