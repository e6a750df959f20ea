package credits

import (
	creditsvc "daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/catalog"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *creditsvc.Service
}

// GET /api/v1/credits
func (h *Handlers) Balance(c *fiber.Ctx) error {
	bal, err := h.Service.Balance(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Solde récupéré", bal, nil)
}

// GET /api/v1/credits/transactions
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	txs, err := h.Service.Transactions(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Transactions récupérées", txs, nil)
}

// GET /api/v1/credits/packs
func (h *Handlers) Packs(c *fiber.Ctx) error {
	return response.Success(c, "Packs de crédits", catalog.CreditPacks, nil)
}
