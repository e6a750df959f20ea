package relay

import (
	"errors"

	"daloamarket-backend/internal/application/credits"
	relaysvc "daloamarket-backend/internal/application/relay"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	msgProofFailed   = "Erreur lors de l'envoi de la preuve de paiement"
	msgSupportFailed = "Erreur lors de l'envoi du message"
)

// Handlers serves the two public relay endpoints, which keep their flat
// {success}/{error} bodies, and the signed-in credit proof.
type Handlers struct {
	Service *relaysvc.Service
}

// PostOnly answers preflights and rejects anything but POST.
func PostOnly(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodOptions:
		return c.SendStatus(fiber.StatusNoContent)
	case fiber.MethodPost:
		return c.Next()
	default:
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "Méthode non autorisée"})
	}
}

// POST /api/v1/payments/listing-proof
func (h *Handlers) ListingProof(c *fiber.Ctx) error {
	var in relaysvc.ListingProofInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": relaysvc.ErrMissingData.Error()})
	}
	id, err := h.Service.ListingProof(c.Context(), in)
	if err != nil {
		if errors.Is(err, relaysvc.ErrMissingData) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("listing_id", in.ListingID).Msg("listing proof relay failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgProofFailed})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Preuve de paiement envoyée avec succès",
		"id":      id,
	})
}

// POST /api/v1/support/contact
func (h *Handlers) Support(c *fiber.Ctx) error {
	var in relaysvc.SupportInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": relaysvc.ErrMissingFields.Error()})
	}
	if err := h.Service.Support(c.Context(), in); err != nil {
		if errors.Is(err, relaysvc.ErrMissingFields) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Msg("support relay failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgSupportFailed})
	}
	return c.JSON(fiber.Map{"success": true})
}

// POST /api/v1/payments/credit-proof
func (h *Handlers) CreditProof(c *fiber.Ctx) error {
	var in relaysvc.CreditProofInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, relaysvc.ErrMissingData.Error(), fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.CreditProof(c.Context(), middleware.CurrentUserID(c), in)
	switch {
	case err == nil:
		return response.SuccessCreated(c, "Preuve envoyée. Vos crédits seront ajoutés après vérification.", t, nil)
	case errors.Is(err, relaysvc.ErrMissingData), errors.Is(err, credits.ErrInvalidPack):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, relaysvc.ErrUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	default:
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("credit proof relay failed")
		return response.Error(c, msgProofFailed, fiber.StatusInternalServerError, nil)
	}
}
