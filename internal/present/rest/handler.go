package rest

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/config"
	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/present/rest/presenter"
	"github.com/masapledge/pledge/internal/usecase"
)

type Handler struct {
	siteInfo config.SiteInfo
	otp      *usecase.OtpUsecase
	registry *usecase.CertificateUsecase
	flow     *usecase.FlowUsecase
}

func NewHandler(
	siteInfo config.SiteInfo,
	otp *usecase.OtpUsecase,
	registry *usecase.CertificateUsecase,
	flow *usecase.FlowUsecase,
) *Handler {
	return &Handler{
		siteInfo: siteInfo,
		otp:      otp,
		registry: registry,
		flow:     flow,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/pledge", h.handleWellKnown)

	e.GET("/api/v1/pledges", h.handlePledges)

	e.POST("/api/v1/otp/request", h.handleOtpRequest)
	e.POST("/api/v1/otp/confirm", h.handleOtpConfirm)
	e.POST("/api/v1/otp/resend", h.handleOtpResend)

	e.POST("/api/v1/pledge/flow", h.handleFlowStart)
	e.GET("/api/v1/pledge/flow/:id", h.handleFlowGet)
	e.PUT("/api/v1/pledge/flow/:id/details", h.handleFlowDetails)
	e.POST("/api/v1/pledge/flow/:id/confirm", h.handleFlowConfirm)
	e.POST("/api/v1/pledge/flow/:id/resend", h.handleFlowResend)
	e.POST("/api/v1/pledge/flow/:id/back", h.handleFlowBack)
	e.POST("/api/v1/pledge/flow/:id/oath", h.handleFlowOath)
	e.POST("/api/v1/pledge/flow/:id/agree", h.handleFlowAgree)

	e.GET("/api/v1/certificates/:id", h.handleCertificateVerify)
	e.GET("/api/v1/certificates", h.handleCertificateLookup)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := pledge.WellKnownPledge{
		Version: "1.0",
		Site:    h.siteInfo.FQDN,
		Endpoints: map[string]string{
			"pledge.catalog":            "/api/v1/pledges",
			"pledge.otp.request":        "/api/v1/otp/request",
			"pledge.otp.confirm":        "/api/v1/otp/confirm",
			"pledge.otp.resend":         "/api/v1/otp/resend",
			"pledge.flow":               "/api/v1/pledge/flow",
			"pledge.certificate.verify": "/api/v1/certificates/{certificateId}",
			"pledge.certificate.lookup": "/api/v1/certificates?contact={contactValue}",
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handlePledges(c echo.Context) error {
	return presenter.OK(c, h.flow.Definitions())
}

type otpRequest struct {
	ContactValue string `json:"contactValue"`
	Code         string `json:"code,omitempty"`
}

func (h *Handler) handleOtpRequest(c echo.Context) error {
	ctx := c.Request().Context()

	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	handle, err := h.otp.Issue(ctx, req.ContactValue)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, handle)
}

type confirmResponse struct {
	Verified   bool      `json:"verified"`
	ProofToken string    `json:"proofToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (h *Handler) handleOtpConfirm(c echo.Context) error {
	ctx := c.Request().Context()

	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	proof, err := h.otp.Verify(ctx, req.ContactValue, req.Code)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, confirmResponse{
		Verified:   true,
		ProofToken: proof.Token,
		ExpiresAt:  proof.ExpiresAt,
	})
}

func (h *Handler) handleOtpResend(c echo.Context) error {
	ctx := c.Request().Context()

	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	handle, err := h.otp.Resend(ctx, req.ContactValue)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, handle)
}

type flowResponse struct {
	Flow *usecase.Flow          `json:"flow"`
	Otp  *usecase.SessionHandle `json:"otp,omitempty"`
}

func (h *Handler) handleFlowStart(c echo.Context) error {
	ctx := c.Request().Context()

	var details usecase.Details
	if err := c.Bind(&details); err != nil {
		return presenter.BadRequest(c, err)
	}

	flow, handle, err := h.flow.Start(ctx, details)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow, Otp: handle})
}

func (h *Handler) handleFlowGet(c echo.Context) error {
	ctx := c.Request().Context()

	flow, err := h.flow.Get(ctx, c.Param("id"))
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow})
}

func (h *Handler) handleFlowDetails(c echo.Context) error {
	ctx := c.Request().Context()

	var details usecase.Details
	if err := c.Bind(&details); err != nil {
		return presenter.BadRequest(c, err)
	}

	flow, handle, err := h.flow.UpdateDetails(ctx, c.Param("id"), details)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow, Otp: handle})
}

type flowConfirmRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleFlowConfirm(c echo.Context) error {
	ctx := c.Request().Context()

	var req flowConfirmRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	flow, err := h.flow.ConfirmCode(ctx, c.Param("id"), req.Code)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow})
}

func (h *Handler) handleFlowResend(c echo.Context) error {
	ctx := c.Request().Context()

	handle, err := h.flow.ResendCode(ctx, c.Param("id"))
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, handle)
}

func (h *Handler) handleFlowBack(c echo.Context) error {
	ctx := c.Request().Context()

	flow, err := h.flow.Back(ctx, c.Param("id"))
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow})
}

func (h *Handler) handleFlowOath(c echo.Context) error {
	ctx := c.Request().Context()

	flow, err := h.flow.AcknowledgeOath(ctx, c.Param("id"))
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow})
}

type flowAgreeRequest struct {
	Consent bool `json:"consent"`
}

func (h *Handler) handleFlowAgree(c echo.Context) error {
	ctx := c.Request().Context()

	var req flowAgreeRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	flow, err := h.flow.Agree(ctx, c.Param("id"), req.Consent)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, flowResponse{Flow: flow})
}

// handleCertificateVerify is the open verification surface. A miss renders a
// not-found state, never an error payload with detail.
func (h *Handler) handleCertificateVerify(c echo.Context) error {
	ctx := c.Request().Context()

	cert, err := h.registry.VerifyByID(ctx, c.Param("id"))
	if err != nil {
		return h.presentError(c, err)
	}
	if cert == nil {
		return presenter.NotFound(c, "certificate not found")
	}
	return presenter.OK(c, cert)
}

// handleCertificateLookup is the privacy-gated listing: it requires a proof
// resolved by the middleware and a matching contact query.
func (h *Handler) handleCertificateLookup(c echo.Context) error {
	ctx := c.Request().Context()

	contact := c.QueryParam("contact")
	if contact == "" {
		return presenter.BadRequest(c, domain.ValidationError{Field: "contact", Reason: "required"})
	}

	proof, _ := ctx.Value(domain.ProofCtxKey).(*domain.Proof)

	certs, err := h.registry.FindByContact(ctx, contact, proof)
	if err != nil {
		return h.presentError(c, err)
	}
	return presenter.OK(c, certs)
}

func (h *Handler) presentError(c echo.Context, err error) error {
	var mismatch domain.MismatchError
	if errors.As(err, &mismatch) {
		return presenter.Mismatch(c, mismatch.AttemptsRemaining)
	}
	var tooSoon domain.TooSoonError
	if errors.As(err, &tooSoon) {
		return presenter.TooManyRequests(c, "please wait before requesting another code",
			int(tooSoon.RetryAfter.Seconds())+1)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrOtpExpired):
		return presenter.Gone(c, "code expired, request a new one")
	case errors.Is(err, domain.ErrOtpConsumed):
		return presenter.Gone(c, "code already used")
	case errors.Is(err, domain.ErrOtpAttemptsExhausted):
		return presenter.TooManyRequests(c, "attempts exhausted, request a new code", 0)
	case errors.Is(err, domain.ErrNoActiveSession):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrProofRequired):
		return presenter.Unauthorized(c, "verification required")
	case errors.Is(err, domain.ErrInvalidTransition):
		return presenter.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrOathNotAcknowledged):
		return presenter.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		return presenter.Unavailable(c, err)
	case errors.Is(err, domain.ErrNotVerified):
		slog.Error("issuance attempted for unverified submission", "error", err)
		return presenter.InternalError(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}
