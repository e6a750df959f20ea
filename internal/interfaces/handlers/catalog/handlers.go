package catalog

import (
	"daloamarket-backend/internal/pkg/catalog"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Beta mirrors the publishing rules the clients need to show the right copy.
type Beta struct {
	FreeMode        bool  `json:"free_mode"`
	MaxFreeListings int   `json:"max_free_listings"`
	ListingFee      int64 `json:"listing_fee"`
}

type Handlers struct {
	Beta Beta
}

// GET /api/v1/catalog
func (h *Handlers) Get(c *fiber.Ctx) error {
	return response.Success(c, "Catalogue", fiber.Map{
		"categories":     catalog.Categories,
		"conditions":     catalog.Conditions,
		"districts":      catalog.Districts,
		"credit_packs":   catalog.CreditPacks,
		"min_price":      catalog.MinPrice,
		"max_photos":     catalog.MaxPhotos,
		"items_per_page": catalog.ItemsPerPage,
		"beta":           h.Beta,
	}, nil)
}
