package usecase

import (
	"context"
	"time"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/domain"
)

// SessionStore holds the single active OTP session per contact value.
// Implementations must apply the TTL so abandoned sessions expire on their own.
type SessionStore interface {
	Get(ctx context.Context, contact string) (*domain.OtpSession, error)
	Put(ctx context.Context, session *domain.OtpSession, ttl time.Duration) error
	Delete(ctx context.Context, contact string) error
}

// ProofStore holds short-lived proof-of-contact-control tokens minted by a
// successful OTP round-trip.
type ProofStore interface {
	Put(ctx context.Context, proof *domain.Proof, ttl time.Duration) error
	Get(ctx context.Context, token string) (*domain.Proof, error)
	Delete(ctx context.Context, token string) error
}

// ContactChannel dispatches a message to an email address or phone number.
// Delivery mechanics live outside this service.
type ContactChannel interface {
	Send(ctx context.Context, contact string, message string) error
}

// SubmissionRepository persists completed pledge submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *pledge.PledgeSubmission) error
	Get(ctx context.Context, submissionID string) (*pledge.PledgeSubmission, error)
}

// CertificateRepository persists issued certificates. Create must return
// domain.ErrDuplicateKey on a unique-constraint hit rather than overwrite, so
// the registry can distinguish an ID collision from other store failures.
type CertificateRepository interface {
	Create(ctx context.Context, cert *pledge.Certificate) error
	GetByID(ctx context.Context, certificateID string) (*pledge.Certificate, error)
	GetBySubmissionID(ctx context.Context, submissionID string) (*pledge.Certificate, error)
	FindByContact(ctx context.Context, contact string) ([]pledge.Certificate, error)
}

// EventPublisher announces issued certificates to the surrounding site.
type EventPublisher interface {
	Publish(ctx context.Context, event pledge.Event) error
}

// FlowStore holds in-flight pledge flow sessions between requests.
type FlowStore interface {
	Get(ctx context.Context, flowID string) (*Flow, error)
	Put(ctx context.Context, flow *Flow) error
	Delete(ctx context.Context, flowID string) error
}
