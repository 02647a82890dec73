package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-contact/internal/api/dto"
	"github.com/spec-kit/portfolio-contact/internal/service"
	"github.com/spec-kit/portfolio-contact/internal/validation"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

const (
	msgContactAccepted = "Thank you for your message! I'll get back to you soon."
	msgContactFailed   = "Sorry, there was an error sending your message. Please try again later."
)

// ContactSubmitter accepts contact form payloads.
type ContactSubmitter interface {
	Submit(ctx context.Context, input validation.ContactInput, clientAddr string) service.SubmitOutcome
}

// ContactHandler serves the public contact form endpoint.
type ContactHandler struct {
	service ContactSubmitter
}

// NewContactHandler constructs handler.
func NewContactHandler(contactService ContactSubmitter) *ContactHandler {
	return &ContactHandler{service: contactService}
}

// Submit POST /api/v1/contact.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	out := h.service.Submit(c.UserContext(), validation.ContactInput{
		Name:        req.Name,
		Email:       req.Email,
		ProjectType: req.ProjectType,
		Message:     req.Message,
	}, c.IP())

	switch out.Kind {
	case service.OutcomeSucceeded:
		return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ContactAccepted{
			ID:      out.Submission.ID,
			Message: msgContactAccepted,
		}})
	case service.OutcomeRateLimited:
		return apperrors.NewTooManyRequests(out.RetryAfterSeconds)
	case service.OutcomeInvalid:
		return apperrors.NewFieldValidationError(out.FieldErrors)
	default:
		return apperrors.NewDomainError("INTERNAL_ERROR", msgContactFailed, http.StatusInternalServerError, nil)
	}
}
