package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/masapledge/pledge/internal/domain"
)

const (
	sessionKeyPrefix = "otp:session:"
	proofKeyPrefix   = "otp:proof:"
)

// RedisOtpStore keeps OTP sessions and proofs in redis with TTLs, so expiry
// needs no sweeper and state survives process restarts. A plain SET per
// contact key gives the last-issue-wins overwrite semantics.
type RedisOtpStore struct {
	rdb *redis.Client
}

func NewRedisOtpStore(rdb *redis.Client) *RedisOtpStore {
	return &RedisOtpStore{rdb: rdb}
}

func (s *RedisOtpStore) Get(ctx context.Context, contact string) (*domain.OtpSession, error) {
	payload, err := s.rdb.Get(ctx, sessionKeyPrefix+contact).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFoundError{Resource: "otp session"}
	}
	if err != nil {
		return nil, err
	}

	var session domain.OtpSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisOtpStore) Put(ctx context.Context, session *domain.OtpSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKeyPrefix+session.ContactValue, payload, ttl).Err()
}

func (s *RedisOtpStore) Delete(ctx context.Context, contact string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+contact).Err()
}

// RedisProofStore keeps proof tokens in redis under the proof TTL.
type RedisProofStore struct {
	rdb *redis.Client
}

func NewRedisProofStore(rdb *redis.Client) *RedisProofStore {
	return &RedisProofStore{rdb: rdb}
}

func (s *RedisProofStore) Put(ctx context.Context, proof *domain.Proof, ttl time.Duration) error {
	payload, err := json.Marshal(proof)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, proofKeyPrefix+proof.Token, payload, ttl).Err()
}

func (s *RedisProofStore) Get(ctx context.Context, token string) (*domain.Proof, error) {
	payload, err := s.rdb.Get(ctx, proofKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NotFoundError{Resource: "proof"}
	}
	if err != nil {
		return nil, err
	}

	var proof domain.Proof
	if err := json.Unmarshal(payload, &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

func (s *RedisProofStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, proofKeyPrefix+token).Err()
}
