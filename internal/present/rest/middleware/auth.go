package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/usecase"
)

var tracer = otel.Tracer("auth")

// ProofMiddleware resolves a bearer proof token (minted by a successful OTP
// confirm) into the verified contact on the request context. Resolution is
// best-effort here; gated handlers enforce presence.
type ProofMiddleware struct {
	otp *usecase.OtpUsecase
}

func NewProofMiddleware(otp *usecase.OtpUsecase) *ProofMiddleware {
	return &ProofMiddleware{
		otp: otp,
	}
}

func (m *ProofMiddleware) ResolveProof(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.ResolveProof")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipResolveProof
			}

			authType, token := split[0], split[1]
			if authType != "Bearer" {
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
				goto skipResolveProof
			}

			proof, err := m.otp.ResolveProof(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "ProofMiddleware.ResolveProof: proof resolution failed"))
				goto skipResolveProof
			}

			ctx = context.WithValue(ctx, domain.VerifiedContactCtxKey, proof.ContactValue)
			ctx = context.WithValue(ctx, domain.ProofCtxKey, proof)
			span.SetAttributes(attribute.String("VerifiedContact", proof.ContactValue))
		}

	skipResolveProof:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
