package domain

import "time"

// OtpSession is the ephemeral verification state for one contact value.
// At most one active session exists per contact; issuing a new code
// overwrites the previous session.
type OtpSession struct {
	ContactValue      string    `json:"contactValue"`
	Code              string    `json:"code"`
	IssuedAt          time.Time `json:"issuedAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AttemptsRemaining int       `json:"attemptsRemaining"`
	Consumed          bool      `json:"consumed"`
}

// Active reports whether the session can still accept a verify attempt.
func (s *OtpSession) Active(now time.Time) bool {
	return !s.Consumed && s.AttemptsRemaining > 0 && now.Before(s.ExpiresAt)
}

// Proof records a completed OTP round-trip. It is handed back to the caller
// as an opaque token and resolved via the proof store while fresh.
type Proof struct {
	Token        string    `json:"token"`
	ContactValue string    `json:"contactValue"`
	VerifiedAt   time.Time `json:"verifiedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
