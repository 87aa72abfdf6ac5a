package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/usecase"
)

// MemoryOtpStore is an in-process session store for development and tests.
// go-cache handles TTL eviction; entries are stored by value copy so callers
// cannot mutate stored state without a Put.
type MemoryOtpStore struct {
	c *cache.Cache
}

func NewMemoryOtpStore() *MemoryOtpStore {
	return &MemoryOtpStore{
		c: cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (s *MemoryOtpStore) Get(ctx context.Context, contact string) (*domain.OtpSession, error) {
	cached, found := s.c.Get(contact)
	if !found {
		return nil, domain.NotFoundError{Resource: "otp session"}
	}
	session := cached.(domain.OtpSession)
	return &session, nil
}

func (s *MemoryOtpStore) Put(ctx context.Context, session *domain.OtpSession, ttl time.Duration) error {
	s.c.Set(session.ContactValue, *session, ttl)
	return nil
}

func (s *MemoryOtpStore) Delete(ctx context.Context, contact string) error {
	s.c.Delete(contact)
	return nil
}

// MemoryProofStore is the in-process counterpart of RedisProofStore.
type MemoryProofStore struct {
	c *cache.Cache
}

func NewMemoryProofStore() *MemoryProofStore {
	return &MemoryProofStore{
		c: cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (s *MemoryProofStore) Put(ctx context.Context, proof *domain.Proof, ttl time.Duration) error {
	s.c.Set(proof.Token, *proof, ttl)
	return nil
}

func (s *MemoryProofStore) Get(ctx context.Context, token string) (*domain.Proof, error) {
	cached, found := s.c.Get(token)
	if !found {
		return nil, domain.NotFoundError{Resource: "proof"}
	}
	proof := cached.(domain.Proof)
	return &proof, nil
}

func (s *MemoryProofStore) Delete(ctx context.Context, token string) error {
	s.c.Delete(token)
	return nil
}

// MemoryFlowStore holds in-flight pledge flows. Flows are bounded by TTL: an
// abandoned flow simply evaporates, which also bounds the no-re-OTP retry
// window after a failed submit.
type MemoryFlowStore struct {
	c *cache.Cache
}

func NewMemoryFlowStore(ttl time.Duration) *MemoryFlowStore {
	return &MemoryFlowStore{
		c: cache.New(ttl, 2*ttl),
	}
}

func (s *MemoryFlowStore) Get(ctx context.Context, flowID string) (*usecase.Flow, error) {
	cached, found := s.c.Get(flowID)
	if !found {
		return nil, domain.NotFoundError{Resource: "flow"}
	}
	flow := cached.(usecase.Flow)
	return &flow, nil
}

func (s *MemoryFlowStore) Put(ctx context.Context, flow *usecase.Flow) error {
	s.c.Set(flow.ID, *flow, cache.DefaultExpiration)
	return nil
}

func (s *MemoryFlowStore) Delete(ctx context.Context, flowID string) error {
	s.c.Delete(flowID)
	return nil
}
