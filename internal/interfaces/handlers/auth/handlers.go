package auth

import (
	"errors"

	authsvc "daloamarket-backend/internal/application/auth"
	policies "daloamarket-backend/internal/application/policies/user"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// POST /api/v1/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req authsvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrInvalidEmail.Error(), fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.Register(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailTaken):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrWeakPassword),
			errors.Is(err, authsvc.ErrFullNameRequired), errors.Is(err, authsvc.ErrInvalidPhone),
			errors.Is(err, authsvc.ErrInvalidDistrict):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return middleware.InternalError(c, err)
		}
	}
	su, err := h.startSession(c, user)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.SuccessCreated(c, "Compte créé avec succès", fiber.Map{"user": su}, nil)
}

// POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return h.authError(c, err)
	}
	su, err := h.startSession(c, user)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Connexion réussie", fiber.Map{"user": su}, nil)
}

// POST /api/v1/auth/otp/request
func (h *Handlers) RequestCode(c *fiber.Ctx) error {
	var req otpRequest
	_ = c.BodyParser(&req)
	if err := h.Service.RequestCode(c.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrInvalidEmail):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrNoAccount):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		case errors.Is(err, authsvc.ErrBanned):
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		default:
			log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("login code not sent")
			return response.Error(c, "Erreur lors de l'envoi du code", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Code envoyé", nil, nil)
}

// POST /api/v1/auth/otp/verify
func (h *Handlers) VerifyCode(c *fiber.Ctx) error {
	var req otpRequest
	_ = c.BodyParser(&req)
	user, err := h.Service.VerifyCode(c.Context(), req.Email, req.Code)
	if err != nil {
		return h.authError(c, err)
	}
	su, err := h.startSession(c, user)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Connexion réussie", fiber.Map{"user": su}, nil)
}

func (h *Handlers) authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials), errors.Is(err, authsvc.ErrInvalidCode):
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	case errors.Is(err, authsvc.ErrBanned):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, authsvc.ErrTooManyAttempts):
		return response.Error(c, err.Error(), fiber.StatusTooManyRequests, nil)
	default:
		return middleware.InternalError(c, err)
	}
}

// GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		if middleware.GetSessionID(c) == "" && c.Cookies(middleware.SessionCookieName) != "" {
			log.Debug().Str("trace_id", middleware.GetTraceID(c)).Msg("auth/me: cookie present but session expired")
		}
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	return response.Success(c, "Authentifié", fiber.Map{"user": user}, nil)
}

// DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	ctx := c.Context()
	if sid != "" {
		if user, ok := middleware.CurrentUser(c); ok {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+user.UserID, sid).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sid).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Déconnexion réussie", nil, nil)
}

// startSession issues a fresh session id for user, tracks it and sets the cookie.
func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) (middleware.SessionUser, error) {
	sid := middleware.RegenerateSessionID(c)
	su := middleware.SessionUser{
		UserID:   user.ID.String(),
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	}
	middleware.SetSessionUser(c, su)
	if err := policies.TrackSession(c.Context(), h.Rdb, su.UserID, sid); err != nil {
		return su, err
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)
	return su, nil
}
