package listings

import (
	"errors"
	"strconv"

	listsvc "daloamarket-backend/internal/application/listings"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/metrics"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
}

// POST /api/v1/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in listsvc.Input
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, listsvc.ErrTitleRequired.Error(), fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Create(c.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		return listingError(c, err)
	}
	metrics.RecordListingCreated(res.Mode)
	return response.SuccessCreated(c, res.Message, res, nil)
}

// GET /api/v1/listings
func (h *Handlers) Search(c *fiber.Ctx) error {
	p := listsvc.SearchParams{
		Query:     c.Query("q"),
		Category:  c.Query("category"),
		Condition: c.Query("condition"),
		District:  c.Query("district"),
		MinPrice:  queryInt64(c, "min_price"),
		MaxPrice:  queryInt64(c, "max_price"),
		Sort:      c.Query("sort"),
		Order:     c.Query("order"),
		Page:      c.QueryInt("page", 1),
	}
	res, err := h.Service.Search(c.Context(), p)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Annonces récupérées", res, response.Page{
		Page: res.Page, PerPage: res.PerPage, Total: res.Total, HasMore: res.HasMore,
	})
}

// GET /api/v1/listings/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return response.Error(c, listsvc.ErrNotFound.Error(), fiber.StatusNotFound, nil)
	}
	viewer := listsvc.Viewer{}
	if u, ok := middleware.CurrentUser(c); ok {
		viewer.UserID = middleware.CurrentUserID(c)
		viewer.IsAdmin = u.Role == domain.RoleAdmin
	}
	d, err := h.Service.Get(c.Context(), id, viewer)
	if err != nil {
		return listingError(c, err)
	}
	return response.Success(c, "Annonce récupérée", d, nil)
}

// GET /api/v1/listings/mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	items, err := h.Service.Mine(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Vos annonces", items, nil)
}

// GET /api/v1/listings/quota
func (h *Handlers) Quota(c *fiber.Ctx) error {
	q, err := h.Service.Quota(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Quota de publication", q, nil)
}

// PUT /api/v1/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return response.Error(c, listsvc.ErrNotFound.Error(), fiber.StatusNotFound, nil)
	}
	var in listsvc.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Requête invalide", fiber.StatusBadRequest, nil)
	}
	l, err := h.Service.Update(c.Context(), middleware.CurrentUserID(c), id, in)
	if err != nil {
		return listingError(c, err)
	}
	return response.Success(c, "Annonce mise à jour", l, nil)
}

// PATCH /api/v1/listings/:id/sold
func (h *Handlers) MarkSold(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return response.Error(c, listsvc.ErrNotFound.Error(), fiber.StatusNotFound, nil)
	}
	l, err := h.Service.MarkSold(c.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		return listingError(c, err)
	}
	return response.Success(c, "Annonce marquée comme vendue", l, nil)
}

// DELETE /api/v1/listings/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return response.Error(c, listsvc.ErrNotFound.Error(), fiber.StatusNotFound, nil)
	}
	if err := h.Service.Delete(c.Context(), middleware.CurrentUserID(c), id); err != nil {
		return listingError(c, err)
	}
	return response.Success(c, "Annonce supprimée", nil, nil)
}

func listingError(c *fiber.Ctx, err error) error {
	var limit *listsvc.LimitError
	switch {
	case listsvc.IsValidationError(err), errors.Is(err, listsvc.ErrNotEditable), errors.Is(err, listsvc.ErrNotActive):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.As(err, &limit), errors.Is(err, listsvc.ErrNotOwner):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, listsvc.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	default:
		return middleware.InternalError(c, err)
	}
}

func listingID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func queryInt64(c *fiber.Ctx, key string) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
