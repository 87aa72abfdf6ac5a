package repository

import (
	"context"
	"encoding/json"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/masapledge/pledge"
)

const certificateCacheTTL = 300 // seconds

type certificateStore interface {
	Create(ctx context.Context, cert *pledge.Certificate) error
	GetByID(ctx context.Context, certificateID string) (*pledge.Certificate, error)
	GetBySubmissionID(ctx context.Context, submissionID string) (*pledge.Certificate, error)
	FindByContact(ctx context.Context, contact string) ([]pledge.Certificate, error)
}

// CachedCertificateRepository fronts the by-ID lookup with memcached. The
// public verification page is the hot, unauthenticated path; certificates are
// immutable so a cached hit can never be stale, only absent.
type CachedCertificateRepository struct {
	inner certificateStore
	mc    *memcache.Client
}

func NewCachedCertificateRepository(inner certificateStore, mc *memcache.Client) *CachedCertificateRepository {
	return &CachedCertificateRepository{
		inner: inner,
		mc:    mc,
	}
}

func (r *CachedCertificateRepository) Create(ctx context.Context, cert *pledge.Certificate) error {
	return r.inner.Create(ctx, cert)
}

func (r *CachedCertificateRepository) GetByID(ctx context.Context, certificateID string) (*pledge.Certificate, error) {
	if item, err := r.mc.Get(cacheKey(certificateID)); err == nil {
		var cert pledge.Certificate
		if err := json.Unmarshal(item.Value, &cert); err == nil {
			return &cert, nil
		}
	}

	cert, err := r.inner.GetByID(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(cert); err == nil {
		// Cache failures are invisible to callers.
		_ = r.mc.Set(&memcache.Item{
			Key:        cacheKey(certificateID),
			Value:      payload,
			Expiration: certificateCacheTTL,
		})
	}

	return cert, nil
}

func (r *CachedCertificateRepository) GetBySubmissionID(ctx context.Context, submissionID string) (*pledge.Certificate, error) {
	return r.inner.GetBySubmissionID(ctx, submissionID)
}

func (r *CachedCertificateRepository) FindByContact(ctx context.Context, contact string) ([]pledge.Certificate, error) {
	return r.inner.FindByContact(ctx, contact)
}

func cacheKey(certificateID string) string {
	return "cert:" + certificateID
}
