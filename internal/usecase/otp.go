package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/utils"
)

var otpTracer = otel.Tracer("otp")

const codeLength = 6

// OtpOptions tunes session lifetime and brute-force bounds.
type OtpOptions struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
	ProofTTL    time.Duration

	// TestCode, when non-empty, replaces the random code. Gated by config, for
	// integration environments without a delivery channel only.
	TestCode string
}

// OtpUsecase proves a caller controls a claimed contact value through a
// one-time passcode round-trip.
type OtpUsecase struct {
	sessions SessionStore
	proofs   ProofStore
	channel  ContactChannel
	opts     OtpOptions

	locks *utils.KeyedLock
	nowFn func() time.Time
}

func NewOtpUsecase(
	sessions SessionStore,
	proofs ProofStore,
	channel ContactChannel,
	opts OtpOptions,
) *OtpUsecase {
	return &OtpUsecase{
		sessions: sessions,
		proofs:   proofs,
		channel:  channel,
		opts:     opts,
		locks:    utils.NewKeyedLock(),
		nowFn:    time.Now,
	}
}

// SessionHandle identifies an OTP session without exposing the code.
type SessionHandle struct {
	ContactValue string    `json:"contactValue"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ResendAfter  time.Time `json:"resendAfter"`
}

// Issue generates a fresh code for the contact, overwriting any previous
// session, and dispatches it through the contact channel.
func (uc *OtpUsecase) Issue(ctx context.Context, contact string) (*SessionHandle, error) {
	ctx, span := otpTracer.Start(ctx, "Otp.Usecase.Issue")
	defer span.End()

	if !pledge.IsContact(contact) {
		err := domain.ValidationError{Field: "contactValue", Reason: "not an email address or phone number"}
		span.RecordError(err)
		return nil, err
	}
	contact = pledge.NormalizeContact(contact)

	uc.locks.Lock(contact)
	defer uc.locks.Unlock(contact)

	return uc.issueLocked(ctx, contact)
}

func (uc *OtpUsecase) issueLocked(ctx context.Context, contact string) (*SessionHandle, error) {
	code, err := uc.generateCode()
	if err != nil {
		return nil, errors.Wrap(err, "code generation failed")
	}

	now := uc.nowFn()
	session := &domain.OtpSession{
		ContactValue:      contact,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(uc.opts.TTL),
		AttemptsRemaining: uc.opts.MaxAttempts,
	}

	if err := uc.sessions.Put(ctx, session, uc.opts.TTL); err != nil {
		return nil, domain.PersistenceError{Op: "otp session write", Cause: err}
	}

	message := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(uc.opts.TTL.Minutes()))
	if err := uc.channel.Send(ctx, contact, message); err != nil {
		return nil, errors.Wrap(err, "code dispatch failed")
	}

	return &SessionHandle{
		ContactValue: contact,
		ExpiresAt:    session.ExpiresAt,
		ResendAfter:  now.Add(uc.opts.Cooldown),
	}, nil
}

// Verify checks a candidate code against the active session for the contact.
// On success the session is consumed and a short-lived proof is minted.
func (uc *OtpUsecase) Verify(ctx context.Context, contact string, candidate string) (*domain.Proof, error) {
	ctx, span := otpTracer.Start(ctx, "Otp.Usecase.Verify")
	defer span.End()

	contact = pledge.NormalizeContact(contact)

	uc.locks.Lock(contact)
	defer uc.locks.Unlock(contact)

	session, err := uc.sessions.Get(ctx, contact)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSession
		}
		return nil, domain.PersistenceError{Op: "otp session read", Cause: err}
	}

	now := uc.nowFn()

	if session.Consumed {
		span.RecordError(domain.ErrOtpConsumed)
		return nil, domain.ErrOtpConsumed
	}
	if now.After(session.ExpiresAt) {
		span.RecordError(domain.ErrOtpExpired)
		return nil, domain.ErrOtpExpired
	}
	if session.AttemptsRemaining <= 0 {
		span.RecordError(domain.ErrOtpAttemptsExhausted)
		return nil, domain.ErrOtpAttemptsExhausted
	}

	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(candidate)) != 1 {
		session.AttemptsRemaining--
		ttl := session.ExpiresAt.Sub(now)
		if err := uc.sessions.Put(ctx, session, ttl); err != nil {
			return nil, domain.PersistenceError{Op: "otp session write", Cause: err}
		}
		err := domain.MismatchError{AttemptsRemaining: session.AttemptsRemaining}
		span.RecordError(err)
		return nil, err
	}

	session.Consumed = true
	if err := uc.sessions.Put(ctx, session, session.ExpiresAt.Sub(now)); err != nil {
		return nil, domain.PersistenceError{Op: "otp session write", Cause: err}
	}

	proof := &domain.Proof{
		Token:        uuid.New().String(),
		ContactValue: contact,
		VerifiedAt:   now,
		ExpiresAt:    now.Add(uc.opts.ProofTTL),
	}
	if err := uc.proofs.Put(ctx, proof, uc.opts.ProofTTL); err != nil {
		return nil, domain.PersistenceError{Op: "proof write", Cause: err}
	}

	return proof, nil
}

// Resend re-issues a code for the contact, subject to the cooldown measured
// from the previous issue time.
func (uc *OtpUsecase) Resend(ctx context.Context, contact string) (*SessionHandle, error) {
	ctx, span := otpTracer.Start(ctx, "Otp.Usecase.Resend")
	defer span.End()

	contact = pledge.NormalizeContact(contact)

	uc.locks.Lock(contact)
	defer uc.locks.Unlock(contact)

	session, err := uc.sessions.Get(ctx, contact)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.PersistenceError{Op: "otp session read", Cause: err}
	}

	if session != nil && !session.Consumed {
		wait := session.IssuedAt.Add(uc.opts.Cooldown).Sub(uc.nowFn())
		if wait > 0 {
			err := domain.TooSoonError{RetryAfter: wait}
			span.RecordError(err)
			return nil, err
		}
	}

	return uc.issueLocked(ctx, contact)
}

// Discard drops the active session for the contact, if any. Held under the
// same per-contact lock as Issue and Verify so it cannot interleave with an
// in-flight read-modify-write.
func (uc *OtpUsecase) Discard(ctx context.Context, contact string) error {
	contact = pledge.NormalizeContact(contact)

	uc.locks.Lock(contact)
	defer uc.locks.Unlock(contact)

	return uc.sessions.Delete(ctx, contact)
}

// ResolveProof looks up a proof token and checks freshness.
func (uc *OtpUsecase) ResolveProof(ctx context.Context, token string) (*domain.Proof, error) {
	proof, err := uc.proofs.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProofRequired
		}
		return nil, domain.PersistenceError{Op: "proof read", Cause: err}
	}
	if uc.nowFn().After(proof.ExpiresAt) {
		return nil, domain.ErrProofRequired
	}
	return proof, nil
}

func (uc *OtpUsecase) generateCode() (string, error) {
	if uc.opts.TestCode != "" {
		return uc.opts.TestCode, nil
	}
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}
