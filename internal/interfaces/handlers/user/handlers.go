package user

import (
	"errors"

	authsvc "daloamarket-backend/internal/application/auth"
	usersvc "daloamarket-backend/internal/application/user"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *usersvc.Service
}

// GET /api/v1/users/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	p, err := h.Service.Me(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Profil récupéré", p, nil)
}

// PUT /api/v1/users/me
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	var req usersvc.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, usersvc.ErrNothingToSave.Error(), fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.Update(c.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, usersvc.ErrUserNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		case errors.Is(err, usersvc.ErrNothingToSave), errors.Is(err, authsvc.ErrFullNameRequired),
			errors.Is(err, authsvc.ErrInvalidPhone), errors.Is(err, authsvc.ErrInvalidDistrict):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return middleware.InternalError(c, err)
		}
	}
	// keep the session display name in sync
	if su, ok := middleware.CurrentUser(c); ok && su.FullName != u.FullName {
		su.FullName = u.FullName
		middleware.SetSessionUser(c, su)
	}
	return response.Success(c, "Profil mis à jour", u, nil)
}

// GET /api/v1/users/:id/profile
func (h *Handlers) Profile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, usersvc.ErrUserNotFound.Error(), fiber.StatusNotFound, nil)
	}
	p, err := h.Service.PublicProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Profil vendeur récupéré", p, nil)
}
