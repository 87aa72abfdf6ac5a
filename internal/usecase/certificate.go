package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/certid"
	"github.com/masapledge/pledge/internal/domain"
)

var certTracer = otel.Tracer("certificate")

// CertificateUsecase is the single source of truth mapping a verified
// submission to exactly one durable certificate, and the answer point for
// both public (by-ID) and proof-gated (by-contact) lookups.
type CertificateUsecase struct {
	certs  CertificateRepository
	events EventPublisher

	maxIDRetries int
}

func NewCertificateUsecase(certs CertificateRepository, events EventPublisher, maxIDRetries int) *CertificateUsecase {
	return &CertificateUsecase{
		certs:        certs,
		events:       events,
		maxIDRetries: maxIDRetries,
	}
}

// Issue mints the certificate for a verified submission. Repeated calls for
// the same submission return the existing certificate; an ID collision in the
// store triggers regeneration, never an overwrite.
func (uc *CertificateUsecase) Issue(ctx context.Context, submission *pledge.PledgeSubmission, pledgeTitle string) (*pledge.Certificate, error) {
	ctx, span := certTracer.Start(ctx, "Certificate.Usecase.Issue")
	defer span.End()

	if !submission.Verified {
		span.RecordError(domain.ErrNotVerified)
		return nil, domain.ErrNotVerified
	}

	existing, err := uc.certs.GetBySubmissionID(ctx, submission.SubmissionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.PersistenceError{Op: "certificate read", Cause: err}
	}
	if existing != nil {
		return existing, nil
	}

	for i := 0; i < uc.maxIDRetries; i++ {
		id, err := certid.New()
		if err != nil {
			return nil, errors.Wrap(err, "certificate id generation failed")
		}

		cert := &pledge.Certificate{
			CertificateID: id,
			SubmissionID:  submission.SubmissionID,
			FullName:      submission.FullName,
			PledgeTitle:   pledgeTitle,
			Email:         submission.Email,
			Mobile:        submission.Mobile,
			IssuedAt:      submission.CreatedAt,
		}

		err = uc.certs.Create(ctx, cert)
		if err == nil {
			uc.publishIssued(ctx, cert, submission.PledgeID)
			return cert, nil
		}

		if errors.Is(err, domain.ErrDuplicateKey) {
			// Either a concurrent issue for this submission won, or the
			// generated ID collided with an older certificate.
			winner, lookupErr := uc.certs.GetBySubmissionID(ctx, submission.SubmissionID)
			if lookupErr == nil && winner != nil {
				return winner, nil
			}
			continue
		}

		span.RecordError(err)
		return nil, domain.PersistenceError{Op: "certificate write", Cause: err}
	}

	return nil, domain.PersistenceError{Op: "certificate id allocation"}
}

// VerifyByID is the public verification lookup. A miss is a valid result, not
// an error: callers receive nil and render a not-found state.
func (uc *CertificateUsecase) VerifyByID(ctx context.Context, rawID string) (*pledge.Certificate, error) {
	ctx, span := certTracer.Start(ctx, "Certificate.Usecase.VerifyByID")
	defer span.End()

	id := certid.Normalize(rawID)
	if !certid.IsValid(id) {
		return nil, nil
	}

	cert, err := uc.certs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, domain.PersistenceError{Op: "certificate read", Cause: err}
	}
	return cert, nil
}

// FindByContact returns every certificate issued to the contact. The proof
// must be fresh and bound to the same contact; without it the lookup is
// rejected outright rather than answered partially.
func (uc *CertificateUsecase) FindByContact(ctx context.Context, contact string, proof *domain.Proof) ([]pledge.Certificate, error) {
	ctx, span := certTracer.Start(ctx, "Certificate.Usecase.FindByContact")
	defer span.End()

	contact = pledge.NormalizeContact(contact)

	if proof == nil || !strings.EqualFold(proof.ContactValue, contact) {
		span.RecordError(domain.ErrProofRequired)
		return nil, domain.ErrProofRequired
	}

	certs, err := uc.certs.FindByContact(ctx, contact)
	if err != nil {
		span.RecordError(err)
		return nil, domain.PersistenceError{Op: "certificate search", Cause: err}
	}
	if certs == nil {
		certs = []pledge.Certificate{}
	}
	return certs, nil
}

func (uc *CertificateUsecase) publishIssued(ctx context.Context, cert *pledge.Certificate, pledgeID string) {
	if uc.events == nil {
		return
	}
	event := pledge.Event{
		Type:          pledge.EventCertificateIssued,
		CertificateID: cert.CertificateID,
		PledgeID:      pledgeID,
		Timestamp:     cert.IssuedAt,
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		// Announcement only; issuance already committed.
		slog.Warn("failed to publish issuance event", "certificateId", cert.CertificateID, "error", err)
	}
}
