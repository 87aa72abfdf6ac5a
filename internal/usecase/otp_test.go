package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/masapledge/pledge/internal/domain"
)

// --- mocks ---

type mockSessionStore struct {
	sessions map[string]domain.OtpSession
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]domain.OtpSession{}}
}

func (m *mockSessionStore) Get(ctx context.Context, contact string) (*domain.OtpSession, error) {
	s, ok := m.sessions[contact]
	if !ok {
		return nil, domain.NotFoundError{Resource: "otp session"}
	}
	return &s, nil
}

func (m *mockSessionStore) Put(ctx context.Context, session *domain.OtpSession, ttl time.Duration) error {
	m.sessions[session.ContactValue] = *session
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, contact string) error {
	delete(m.sessions, contact)
	return nil
}

type mockProofStore struct {
	proofs map[string]domain.Proof
}

func newMockProofStore() *mockProofStore {
	return &mockProofStore{proofs: map[string]domain.Proof{}}
}

func (m *mockProofStore) Put(ctx context.Context, proof *domain.Proof, ttl time.Duration) error {
	m.proofs[proof.Token] = *proof
	return nil
}

func (m *mockProofStore) Get(ctx context.Context, token string) (*domain.Proof, error) {
	p, ok := m.proofs[token]
	if !ok {
		return nil, domain.NotFoundError{Resource: "proof"}
	}
	return &p, nil
}

func (m *mockProofStore) Delete(ctx context.Context, token string) error {
	delete(m.proofs, token)
	return nil
}

type mockChannel struct {
	sent []string
}

func (m *mockChannel) Send(ctx context.Context, contact string, message string) error {
	m.sent = append(m.sent, contact)
	return nil
}

func newTestOtpUsecase(code string) (*OtpUsecase, *mockSessionStore, *mockChannel, *time.Time) {
	sessions := newMockSessionStore()
	channel := &mockChannel{}
	uc := NewOtpUsecase(sessions, newMockProofStore(), channel, OtpOptions{
		TTL:         5 * time.Minute,
		Cooldown:    60 * time.Second,
		MaxAttempts: 5,
		ProofTTL:    5 * time.Minute,
		TestCode:    code,
	})

	now := time.Now()
	uc.nowFn = func() time.Time { return now }
	return uc, sessions, channel, &now
}

// --- tests ---

func TestOtpIssueAndVerify(t *testing.T) {
	uc, _, channel, _ := newTestOtpUsecase("123456")

	handle, err := uc.Issue(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if handle.ContactValue != "a@x.com" {
		t.Fatalf("unexpected contact: %s", handle.ContactValue)
	}
	if len(channel.sent) != 1 {
		t.Fatalf("expected 1 dispatch got %d", len(channel.sent))
	}

	proof, err := uc.Verify(context.Background(), "a@x.com", "123456")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if proof.ContactValue != "a@x.com" {
		t.Fatalf("proof bound to wrong contact: %s", proof.ContactValue)
	}
}

func TestOtpIssueRejectsBadContact(t *testing.T) {
	uc, _, _, _ := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "not a contact"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestOtpReissueInvalidatesPriorCode(t *testing.T) {
	uc, sessions, _, _ := newTestOtpUsecase("")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	firstCode := sessions.sessions["a@x.com"].Code

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	secondCode := sessions.sessions["a@x.com"].Code

	if firstCode == secondCode {
		t.Fatalf("expected a fresh code on reissue")
	}

	if _, err := uc.Verify(context.Background(), "a@x.com", firstCode); !errors.Is(err, domain.ErrOtpMismatch) {
		t.Fatalf("stale code should mismatch, got %v", err)
	}
	if _, err := uc.Verify(context.Background(), "a@x.com", secondCode); err != nil {
		t.Fatalf("fresh code should verify, got %v", err)
	}
}

func TestOtpAttemptsExhaustion(t *testing.T) {
	uc, _, _, _ := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		_, err := uc.Verify(context.Background(), "a@x.com", "000000")
		var mismatch domain.MismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("attempt %d: expected mismatch got %v", i+1, err)
		}
		if mismatch.AttemptsRemaining != 4-i {
			t.Fatalf("attempt %d: expected %d remaining got %d", i+1, 4-i, mismatch.AttemptsRemaining)
		}
	}

	// Even the correct code is refused once attempts are gone.
	if _, err := uc.Verify(context.Background(), "a@x.com", "123456"); !errors.Is(err, domain.ErrOtpAttemptsExhausted) {
		t.Fatalf("expected exhaustion got %v", err)
	}
}

func TestOtpExpiry(t *testing.T) {
	uc, _, _, now := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "b@y.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	*now = now.Add(6 * time.Minute)

	// Correct code after expiry must fail as expired, not as a mismatch.
	if _, err := uc.Verify(context.Background(), "b@y.com", "123456"); !errors.Is(err, domain.ErrOtpExpired) {
		t.Fatalf("expected expired got %v", err)
	}
}

func TestOtpConsumedIsTerminal(t *testing.T) {
	uc, _, _, _ := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := uc.Verify(context.Background(), "a@x.com", "123456"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if _, err := uc.Verify(context.Background(), "a@x.com", "123456"); !errors.Is(err, domain.ErrOtpConsumed) {
		t.Fatalf("expected consumed got %v", err)
	}
}

func TestOtpResendCooldown(t *testing.T) {
	uc, _, channel, now := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := uc.Resend(context.Background(), "a@x.com"); !errors.Is(err, domain.ErrOtpTooSoon) {
		t.Fatalf("expected too soon got %v", err)
	}

	*now = now.Add(61 * time.Second)

	if _, err := uc.Resend(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("resend after cooldown failed: %v", err)
	}
	if len(channel.sent) != 2 {
		t.Fatalf("expected 2 dispatches got %d", len(channel.sent))
	}
}

func TestOtpDiscard(t *testing.T) {
	uc, sessions, _, _ := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if err := uc.Discard(context.Background(), "A@X.com"); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if _, ok := sessions.sessions["a@x.com"]; ok {
		t.Fatalf("session must be removed")
	}

	// The discarded code is dead.
	if _, err := uc.Verify(context.Background(), "a@x.com", "123456"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session got %v", err)
	}

	// Discarding an absent session is a no-op.
	if err := uc.Discard(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("discard of absent session failed: %v", err)
	}
}

func TestOtpProofResolution(t *testing.T) {
	uc, _, _, now := newTestOtpUsecase("123456")

	if _, err := uc.Issue(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	proof, err := uc.Verify(context.Background(), "a@x.com", "123456")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	resolved, err := uc.ResolveProof(context.Background(), proof.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ContactValue != "a@x.com" {
		t.Fatalf("unexpected contact: %s", resolved.ContactValue)
	}

	if _, err := uc.ResolveProof(context.Background(), "no-such-token"); !errors.Is(err, domain.ErrProofRequired) {
		t.Fatalf("expected proof required got %v", err)
	}

	*now = now.Add(6 * time.Minute)
	if _, err := uc.ResolveProof(context.Background(), proof.Token); !errors.Is(err, domain.ErrProofRequired) {
		t.Fatalf("expected stale proof rejection got %v", err)
	}
}
