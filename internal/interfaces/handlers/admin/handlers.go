package admin

import (
	"errors"

	adminsvc "daloamarket-backend/internal/application/admin"
	"daloamarket-backend/internal/application/credits"
	policies "daloamarket-backend/internal/application/policies/user"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *adminsvc.Service
}

type creditsRequest struct {
	Credits *int `json:"credits"`
}

type packRequest struct {
	PackCredits int `json:"pack_credits"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// GET /api/v1/admin/users?q=
func (h *Handlers) Users(c *fiber.Ctx) error {
	rows, err := h.Service.Users(c.Context(), c.Query("q"))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Utilisateurs récupérés", rows, nil)
}

// PATCH /api/v1/admin/users/:id/ban
func (h *Handlers) ToggleBan(c *fiber.Ctx) error {
	target, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrUserNotFound.Error(), fiber.StatusNotFound, nil)
	}
	actor := middleware.CurrentUserID(c)
	banned, err := h.Service.ToggleBan(c.Context(), actor, target)
	if err != nil {
		return adminError(c, err)
	}
	log.Info().Str("admin_id", actor.String()).Str("user_id", target.String()).Bool("banned", banned).Msg("admin ban toggled")
	msg := "Utilisateur débanni"
	if banned {
		msg = "Utilisateur banni"
	}
	return response.Success(c, msg, fiber.Map{"banned": banned}, nil)
}

// PATCH /api/v1/admin/users/:id/credits
func (h *Handlers) SetCredits(c *fiber.Ctx) error {
	target, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrUserNotFound.Error(), fiber.StatusNotFound, nil)
	}
	var req creditsRequest
	if err := c.BodyParser(&req); err != nil || req.Credits == nil {
		return response.Error(c, credits.ErrInvalidAmount.Error(), fiber.StatusBadRequest, nil)
	}
	bal, err := h.Service.SetCredits(c.Context(), target, *req.Credits)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Crédits mis à jour", bal, nil)
}

// POST /api/v1/admin/users/:id/credit-packs
func (h *Handlers) AddPack(c *fiber.Ctx) error {
	target, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrUserNotFound.Error(), fiber.StatusNotFound, nil)
	}
	var req packRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, credits.ErrInvalidPack.Error(), fiber.StatusBadRequest, nil)
	}
	bal, err := h.Service.AddPack(c.Context(), target, req.PackCredits)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Pack de crédits ajouté", bal, nil)
}

// PATCH /api/v1/admin/users/:id/role
func (h *Handlers) SetRole(c *fiber.Ctx) error {
	target, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrUserNotFound.Error(), fiber.StatusNotFound, nil)
	}
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, policies.ErrInvalidRole.Error(), fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.SetRole(c.Context(), middleware.CurrentUserID(c), target, req.Role)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Rôle mis à jour", u, nil)
}

// GET /api/v1/admin/listings?status=
func (h *Handlers) Listings(c *fiber.Ctx) error {
	rows, err := h.Service.Listings(c.Context(), c.Query("status"))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Annonces récupérées", rows, nil)
}

// PATCH /api/v1/admin/listings/:id/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	l, err := h.Service.Approve(c.Context(), id)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Annonce approuvée", l, nil)
}

// PATCH /api/v1/admin/listings/:id/disable
func (h *Handlers) Disable(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	l, err := h.Service.Disable(c.Context(), id)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Annonce désactivée", l, nil)
}

// PATCH /api/v1/admin/listings/:id/sold
func (h *Handlers) MarkSold(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	l, err := h.Service.MarkSold(c.Context(), id)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Annonce marquée comme vendue", l, nil)
}

// DELETE /api/v1/admin/listings/:id
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	if err := h.Service.DeleteListing(c.Context(), id); err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Annonce supprimée", fiber.Map{"id": id}, nil)
}

// GET /api/v1/admin/credits
func (h *Handlers) Balances(c *fiber.Ctx) error {
	rows, err := h.Service.Balances(c.Context())
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Soldes récupérés", rows, nil)
}

// GET /api/v1/admin/transactions?status=&type=
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	rows, err := h.Service.Transactions(c.Context(), c.Query("status"), c.Query("type"))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Transactions récupérées", rows, nil)
}

// PATCH /api/v1/admin/transactions/:id/validate
func (h *Handlers) ValidateTransaction(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrTransactionNotFound.Error(), fiber.StatusNotFound, nil)
	}
	t, err := h.Service.ValidateTransaction(c.Context(), id)
	if err != nil {
		return adminError(c, err)
	}
	log.Info().Str("transaction_id", id.String()).Str("type", t.Type).Msg("transaction validated")
	return response.Success(c, "Transaction validée", t, nil)
}

// PATCH /api/v1/admin/transactions/:id/reject
func (h *Handlers) RejectTransaction(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return response.Error(c, adminsvc.ErrTransactionNotFound.Error(), fiber.StatusNotFound, nil)
	}
	t, err := h.Service.RejectTransaction(c.Context(), id)
	if err != nil {
		return adminError(c, err)
	}
	return response.Success(c, "Transaction rejetée", t, nil)
}

func pathID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func adminError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, policies.ErrSelfAction), errors.Is(err, policies.ErrInvalidRole),
		errors.Is(err, adminsvc.ErrListingNotPending), errors.Is(err, adminsvc.ErrAlreadyProcessed),
		errors.Is(err, credits.ErrInvalidPack), errors.Is(err, credits.ErrInvalidAmount),
		errors.Is(err, credits.ErrInsufficientCredits):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, adminsvc.ErrUserNotFound), errors.Is(err, adminsvc.ErrListingNotFound),
		errors.Is(err, adminsvc.ErrTransactionNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	default:
		return middleware.InternalError(c, err)
	}
}
