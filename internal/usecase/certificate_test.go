package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/certid"
	"github.com/masapledge/pledge/internal/domain"
)

// --- mocks ---

type mockCertRepo struct {
	byID           map[string]pledge.Certificate
	bySubmission   map[string]string
	failNextCreate int
	duplicateOnce  bool
}

func newMockCertRepo() *mockCertRepo {
	return &mockCertRepo{
		byID:         map[string]pledge.Certificate{},
		bySubmission: map[string]string{},
	}
}

func (m *mockCertRepo) Create(ctx context.Context, cert *pledge.Certificate) error {
	if m.failNextCreate > 0 {
		m.failNextCreate--
		return errors.New("store down")
	}
	if m.duplicateOnce {
		m.duplicateOnce = false
		return domain.ErrDuplicateKey
	}
	if _, exists := m.byID[cert.CertificateID]; exists {
		return domain.ErrDuplicateKey
	}
	if _, exists := m.bySubmission[cert.SubmissionID]; exists {
		return domain.ErrDuplicateKey
	}
	m.byID[cert.CertificateID] = *cert
	m.bySubmission[cert.SubmissionID] = cert.CertificateID
	return nil
}

func (m *mockCertRepo) GetByID(ctx context.Context, certificateID string) (*pledge.Certificate, error) {
	cert, ok := m.byID[certificateID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "certificate"}
	}
	return &cert, nil
}

func (m *mockCertRepo) GetBySubmissionID(ctx context.Context, submissionID string) (*pledge.Certificate, error) {
	id, ok := m.bySubmission[submissionID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "certificate"}
	}
	cert := m.byID[id]
	return &cert, nil
}

func (m *mockCertRepo) FindByContact(ctx context.Context, contact string) ([]pledge.Certificate, error) {
	var certs []pledge.Certificate
	for _, cert := range m.byID {
		if strings.EqualFold(cert.Email, contact) || cert.Mobile == contact {
			certs = append(certs, cert)
		}
	}
	return certs, nil
}

type mockPublisher struct {
	events []pledge.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event pledge.Event) error {
	m.events = append(m.events, event)
	return nil
}

func verifiedSubmission() *pledge.PledgeSubmission {
	return &pledge.PledgeSubmission{
		SubmissionID:    "sub-1",
		PledgeID:        "env-cleanliness",
		FullName:        "Asha Rao",
		ParticipantType: pledge.ParticipantIndividual,
		Email:           "a@x.com",
		Mobile:          "+919876543210",
		Country:         "India",
		Verified:        true,
		ConsentGiven:    true,
		CreatedAt:       time.Now(),
	}
}

// --- tests ---

func TestIssueRequiresVerifiedSubmission(t *testing.T) {
	uc := NewCertificateUsecase(newMockCertRepo(), nil, 5)

	submission := verifiedSubmission()
	submission.Verified = false

	if _, err := uc.Issue(context.Background(), submission, "Environment & Cleanliness Pledge"); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("expected not verified got %v", err)
	}
}

func TestIssueMintsCertificate(t *testing.T) {
	repo := newMockCertRepo()
	publisher := &mockPublisher{}
	uc := NewCertificateUsecase(repo, publisher, 5)

	cert, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if !strings.HasPrefix(cert.CertificateID, certid.Prefix) {
		t.Fatalf("unexpected id format: %s", cert.CertificateID)
	}
	if cert.FullName != "Asha Rao" {
		t.Fatalf("unexpected name: %s", cert.FullName)
	}
	if cert.PledgeTitle != "Environment & Cleanliness Pledge" {
		t.Fatalf("unexpected title: %s", cert.PledgeTitle)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != pledge.EventCertificateIssued {
		t.Fatalf("expected issuance event, got %v", publisher.events)
	}
}

func TestIssueIsIdempotentPerSubmission(t *testing.T) {
	repo := newMockCertRepo()
	uc := NewCertificateUsecase(repo, nil, 5)

	first, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge")
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	second, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge")
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}

	if first.CertificateID != second.CertificateID {
		t.Fatalf("expected identical ids, got %s and %s", first.CertificateID, second.CertificateID)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected exactly one record got %d", len(repo.byID))
	}
}

func TestIssueRetriesOnIDCollision(t *testing.T) {
	repo := newMockCertRepo()
	repo.duplicateOnce = true
	uc := NewCertificateUsecase(repo, nil, 5)

	cert, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge")
	if err != nil {
		t.Fatalf("issue failed after collision: %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one record got %d", len(repo.byID))
	}
	if _, ok := repo.byID[cert.CertificateID]; !ok {
		t.Fatalf("certificate not stored under its id")
	}
}

func TestIssueSurfacesStoreFailure(t *testing.T) {
	repo := newMockCertRepo()
	repo.failNextCreate = 1
	uc := NewCertificateUsecase(repo, nil, 5)

	if _, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("no certificate may exist after a failed write")
	}
}

func TestVerifyByIDReturnsSamePayload(t *testing.T) {
	repo := newMockCertRepo()
	uc := NewCertificateUsecase(repo, nil, 5)

	issued, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	found, err := uc.VerifyByID(context.Background(), "  "+strings.ToLower(issued.CertificateID)+" ")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if found == nil {
		t.Fatalf("expected a certificate")
	}
	if *found != *issued {
		t.Fatalf("payload drifted: %+v vs %+v", found, issued)
	}
}

func TestVerifyByIDMissIsNotAnError(t *testing.T) {
	uc := NewCertificateUsecase(newMockCertRepo(), nil, 5)

	cert, err := uc.VerifyByID(context.Background(), "MASA-PLEDGE-ZZZZZZ")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if cert != nil {
		t.Fatalf("expected nil for unknown id")
	}

	cert, err = uc.VerifyByID(context.Background(), "does-not-exist")
	if err != nil || cert != nil {
		t.Fatalf("malformed id should behave as a miss, got %v %v", cert, err)
	}
}

func TestFindByContactRequiresProof(t *testing.T) {
	repo := newMockCertRepo()
	uc := NewCertificateUsecase(repo, nil, 5)

	if _, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := uc.FindByContact(context.Background(), "a@x.com", nil); !errors.Is(err, domain.ErrProofRequired) {
		t.Fatalf("absent proof must be rejected, got %v", err)
	}

	wrong := &domain.Proof{ContactValue: "someone-else@x.com"}
	if _, err := uc.FindByContact(context.Background(), "a@x.com", wrong); !errors.Is(err, domain.ErrProofRequired) {
		t.Fatalf("mismatched proof must be rejected, got %v", err)
	}
}

func TestFindByContactReturnsMatches(t *testing.T) {
	repo := newMockCertRepo()
	uc := NewCertificateUsecase(repo, nil, 5)

	if _, err := uc.Issue(context.Background(), verifiedSubmission(), "Environment & Cleanliness Pledge"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	proof := &domain.Proof{ContactValue: "a@x.com"}
	certs, err := uc.FindByContact(context.Background(), "A@X.com", proof)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if len(certs) != 1 {
		t.Fatalf("expected 1 certificate got %d", len(certs))
	}

	empty, err := uc.FindByContact(context.Background(), "nobody@x.com", &domain.Proof{ContactValue: "nobody@x.com"})
	if err != nil {
		t.Fatalf("empty lookup failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list got %v", empty)
	}
}
