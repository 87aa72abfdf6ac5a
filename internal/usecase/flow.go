package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/utils"
)

var flowTracer = otel.Tracer("flow")

type FlowState string

const (
	StateCollectingDetails FlowState = "collecting_details"
	StateAwaitingOtp       FlowState = "awaiting_otp"
	StatePresentingOath    FlowState = "presenting_oath"
	StateSubmitting        FlowState = "submitting"
	StateCompleted         FlowState = "completed"
)

// Details is the participant input collected before verification.
type Details struct {
	PledgeID         string                 `json:"pledgeId"`
	FullName         string                 `json:"fullName"`
	ParticipantType  pledge.ParticipantType `json:"participantType"`
	OrganizationName string                 `json:"organizationName,omitempty"`
	Email            string                 `json:"email"`
	Mobile           string                 `json:"mobile"`
	Country          string                 `json:"country"`
	Location         string                 `json:"location,omitempty"`
}

// Flow is one participant's journey from pledge selection to certificate.
// Only the fields valid in the current state are populated: Verified is set
// from AwaitingOtp onward, OathAcknowledged within PresentingOath, and
// Certificate only in Completed.
type Flow struct {
	ID       string    `json:"id"`
	State    FlowState `json:"state"`
	Details  Details   `json:"details"`
	OathText string    `json:"oathText,omitempty"`

	Verified         bool `json:"verified"`
	OathAcknowledged bool `json:"oathAcknowledged"`

	// SubmissionID is set once the submission record is durably written, so a
	// retried Agree after a failed issuance does not write a second record.
	SubmissionID string              `json:"submissionId,omitempty"`
	Certificate  *pledge.Certificate `json:"certificate,omitempty"`
}

// FlowUsecase drives the pledge submission state machine, orchestrating the
// OTP challenge and the certificate registry.
type FlowUsecase struct {
	flows       FlowStore
	otp         *OtpUsecase
	registry    *CertificateUsecase
	submissions SubmissionRepository
	catalog     map[string]pledge.PledgeDefinition

	locks *utils.KeyedLock
	nowFn func() time.Time
}

func NewFlowUsecase(
	flows FlowStore,
	otp *OtpUsecase,
	registry *CertificateUsecase,
	submissions SubmissionRepository,
	definitions []pledge.PledgeDefinition,
) *FlowUsecase {
	catalog := make(map[string]pledge.PledgeDefinition, len(definitions))
	for _, def := range definitions {
		catalog[def.ID] = def
	}
	return &FlowUsecase{
		flows:       flows,
		otp:         otp,
		registry:    registry,
		submissions: submissions,
		catalog:     catalog,
		locks:       utils.NewKeyedLock(),
		nowFn:       time.Now,
	}
}

// Definitions returns the pledge catalog for the selection surface.
func (uc *FlowUsecase) Definitions() []pledge.PledgeDefinition {
	defs := make([]pledge.PledgeDefinition, 0, len(uc.catalog))
	for _, def := range uc.catalog {
		defs = append(defs, def)
	}
	return defs
}

// Start validates the collected details, opens a flow, and issues the first
// OTP to the participant's email.
func (uc *FlowUsecase) Start(ctx context.Context, details Details) (*Flow, *SessionHandle, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.Start")
	defer span.End()

	flow := &Flow{
		ID:    uuid.New().String(),
		State: StateCollectingDetails,
	}

	handle, err := uc.submitDetails(ctx, flow, details)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, handle, nil
}

// UpdateDetails corrects the collected details after Back and re-enters the
// OTP step with a fresh session.
func (uc *FlowUsecase) UpdateDetails(ctx context.Context, flowID string, details Details) (*Flow, *SessionHandle, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.UpdateDetails")
	defer span.End()

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}
	if flow.State != StateCollectingDetails {
		return nil, nil, domain.ErrInvalidTransition
	}

	handle, err := uc.submitDetails(ctx, flow, details)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, handle, nil
}

func (uc *FlowUsecase) submitDetails(ctx context.Context, flow *Flow, details Details) (*SessionHandle, error) {
	if err := uc.validateDetails(details); err != nil {
		return nil, err
	}

	details.Email = pledge.NormalizeContact(details.Email)
	details.Mobile = pledge.NormalizeContact(details.Mobile)

	handle, err := uc.otp.Issue(ctx, details.Email)
	if err != nil {
		return nil, err
	}

	def := uc.catalog[details.PledgeID]
	flow.Details = details
	flow.OathText = def.OathText
	flow.State = StateAwaitingOtp
	flow.Verified = false
	flow.OathAcknowledged = false
	return handle, nil
}

// ConfirmCode checks the candidate code. Success reveals the oath step; OTP
// failures leave the flow in AwaitingOtp so the participant can retry,
// resend, or go back.
func (uc *FlowUsecase) ConfirmCode(ctx context.Context, flowID string, code string) (*Flow, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.ConfirmCode")
	defer span.End()

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State != StateAwaitingOtp {
		return nil, domain.ErrInvalidTransition
	}

	if _, err := uc.otp.Verify(ctx, flow.Details.Email, code); err != nil {
		span.RecordError(err)
		return nil, err
	}

	flow.Verified = true
	flow.State = StatePresentingOath
	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, nil
}

// ResendCode re-issues the code without losing the collected details.
func (uc *FlowUsecase) ResendCode(ctx context.Context, flowID string) (*SessionHandle, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.ResendCode")
	defer span.End()

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State != StateAwaitingOtp {
		return nil, domain.ErrInvalidTransition
	}

	handle, err := uc.otp.Resend(ctx, flow.Details.Email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return handle, nil
}

// Back returns to detail collection, discarding the in-flight OTP session.
// Collected details are retained for correction.
func (uc *FlowUsecase) Back(ctx context.Context, flowID string) (*Flow, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.Back")
	defer span.End()

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State != StateAwaitingOtp {
		return nil, domain.ErrInvalidTransition
	}

	if err := uc.otp.Discard(ctx, flow.Details.Email); err != nil {
		span.RecordError(err)
	}

	flow.State = StateCollectingDetails
	flow.Verified = false
	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, nil
}

// AcknowledgeOath records that the full oath text was presented. Consent is
// refused until this has happened.
func (uc *FlowUsecase) AcknowledgeOath(ctx context.Context, flowID string) (*Flow, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.AcknowledgeOath")
	defer span.End()

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State != StatePresentingOath {
		return nil, domain.ErrInvalidTransition
	}

	flow.OathAcknowledged = true
	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, nil
}

// Agree takes explicit consent, persists the submission, and mints the
// certificate. A persistence failure leaves the flow retryable in
// PresentingOath with the verified state intact; no certificate is minted on
// a failed submit.
func (uc *FlowUsecase) Agree(ctx context.Context, flowID string, consent bool) (*Flow, error) {
	ctx, span := flowTracer.Start(ctx, "Flow.Usecase.Agree")
	defer span.End()

	uc.locks.Lock(flowID)
	defer uc.locks.Unlock(flowID)

	flow, err := uc.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.State != StatePresentingOath {
		return nil, domain.ErrInvalidTransition
	}
	if !flow.Verified {
		return nil, domain.ErrNotVerified
	}
	if !flow.OathAcknowledged {
		span.RecordError(domain.ErrOathNotAcknowledged)
		return nil, domain.ErrOathNotAcknowledged
	}
	if !consent {
		return nil, domain.ValidationError{Field: "consentGiven", Reason: "explicit consent is required"}
	}

	flow.State = StateSubmitting

	submission, err := uc.persistSubmission(ctx, flow, consent)
	if err != nil {
		flow.State = StatePresentingOath
		if putErr := uc.flows.Put(ctx, flow); putErr != nil {
			span.RecordError(putErr)
		}
		span.RecordError(err)
		return nil, err
	}

	// Checkpoint the durable submission ID before minting. Any failure past
	// this point retries against the same record, and the registry's
	// per-submission idempotence prevents a second certificate.
	checkpoint := *flow
	checkpoint.State = StatePresentingOath
	if err := uc.flows.Put(ctx, &checkpoint); err != nil {
		flow.State = StatePresentingOath
		span.RecordError(err)
		return nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}

	def := uc.catalog[flow.Details.PledgeID]
	cert, err := uc.registry.Issue(ctx, submission, def.Title)
	if err != nil {
		// Submission is durable; keep its ID so a retry issues against the
		// same record instead of writing a new one.
		flow.State = StatePresentingOath
		if putErr := uc.flows.Put(ctx, flow); putErr != nil {
			span.RecordError(putErr)
		}
		span.RecordError(err)
		return nil, err
	}

	flow.State = StateCompleted
	flow.Certificate = cert
	if err := uc.flows.Put(ctx, flow); err != nil {
		return nil, domain.PersistenceError{Op: "flow write", Cause: err}
	}
	return flow, nil
}

// Get returns the current flow state, for result pages and polling.
func (uc *FlowUsecase) Get(ctx context.Context, flowID string) (*Flow, error) {
	return uc.load(ctx, flowID)
}

func (uc *FlowUsecase) load(ctx context.Context, flowID string) (*Flow, error) {
	flow, err := uc.flows.Get(ctx, flowID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError{Resource: "flow"}
		}
		return nil, domain.PersistenceError{Op: "flow read", Cause: err}
	}
	return flow, nil
}

func (uc *FlowUsecase) persistSubmission(ctx context.Context, flow *Flow, consent bool) (*pledge.PledgeSubmission, error) {
	if flow.SubmissionID != "" {
		existing, err := uc.submissions.Get(ctx, flow.SubmissionID)
		if err == nil && existing != nil {
			return existing, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.PersistenceError{Op: "submission read", Cause: err}
		}
	}

	submission := &pledge.PledgeSubmission{
		SubmissionID:     uuid.New().String(),
		PledgeID:         flow.Details.PledgeID,
		FullName:         flow.Details.FullName,
		ParticipantType:  flow.Details.ParticipantType,
		OrganizationName: flow.Details.OrganizationName,
		Email:            flow.Details.Email,
		Mobile:           flow.Details.Mobile,
		Country:          flow.Details.Country,
		Location:         flow.Details.Location,
		Verified:         true,
		ConsentGiven:     consent,
		CreatedAt:        uc.nowFn(),
	}

	if err := uc.submissions.Create(ctx, submission); err != nil {
		return nil, domain.PersistenceError{Op: "submission write", Cause: err}
	}

	flow.SubmissionID = submission.SubmissionID
	return submission, nil
}

func (uc *FlowUsecase) validateDetails(details Details) error {
	if details.FullName == "" {
		return domain.ValidationError{Field: "fullName", Reason: "required"}
	}
	if details.Email == "" {
		return domain.ValidationError{Field: "email", Reason: "required"}
	}
	if !pledge.IsEmail(details.Email) {
		return domain.ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	if details.Mobile == "" {
		return domain.ValidationError{Field: "mobile", Reason: "required"}
	}
	if !pledge.IsMobile(details.Mobile) {
		return domain.ValidationError{Field: "mobile", Reason: "not a valid phone number"}
	}
	switch details.ParticipantType {
	case pledge.ParticipantIndividual:
	case pledge.ParticipantOrganization:
		if details.OrganizationName == "" {
			return domain.ValidationError{Field: "organizationName", Reason: "required for organizations"}
		}
	default:
		return domain.ValidationError{Field: "participantType", Reason: "must be individual or organization"}
	}
	if _, ok := uc.catalog[details.PledgeID]; !ok {
		return domain.ValidationError{Field: "pledgeId", Reason: "unknown pledge"}
	}
	return nil
}
