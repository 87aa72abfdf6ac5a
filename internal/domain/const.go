package domain

type ctxKey string

const (
	// VerifiedContactCtxKey carries the contact value a resolved OTP proof
	// belongs to. Set by the proof middleware, read by gated handlers.
	VerifiedContactCtxKey ctxKey = "pledge-verifiedContact"

	// ProofCtxKey carries the resolved *Proof for gated handlers.
	ProofCtxKey ctxKey = "pledge-proof"
)
