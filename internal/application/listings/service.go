package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/catalog"
	"daloamarket-backend/internal/pkg/format"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTitleRequired       = errors.New("Le titre est requis")
	ErrDescriptionRequired = errors.New("La description est requise")
	ErrPriceTooLow         = fmt.Errorf("Le prix minimum est de %d FCFA", catalog.MinPrice)
	ErrInvalidCategory     = errors.New("Catégorie invalide")
	ErrInvalidCondition    = errors.New("État invalide")
	ErrInvalidDistrict     = errors.New("Quartier invalide")
	ErrPhotoRequired       = errors.New("Veuillez ajouter au moins une photo")
	ErrTooManyPhotos       = fmt.Errorf("Maximum %d photos autorisées", catalog.MaxPhotos)

	ErrNotFound    = errors.New("Annonce introuvable")
	ErrNotOwner    = errors.New("Vous n'êtes pas le propriétaire de cette annonce")
	ErrNotEditable = errors.New("Cette annonce ne peut plus être modifiée")
	ErrNotActive   = errors.New("Seule une annonce active peut être marquée comme vendue")
)

var validationErrors = []error{
	ErrTitleRequired, ErrDescriptionRequired, ErrPriceTooLow, ErrInvalidCategory,
	ErrInvalidCondition, ErrInvalidDistrict, ErrPhotoRequired, ErrTooManyPhotos,
}

// IsValidationError reports whether err is a 400-class input error.
func IsValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// LimitError is returned when the beta quota is used up.
type LimitError struct {
	Max int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Limite de %d publications atteinte pour la période bêta.", e.Max)
}

// Publish modes, also used as the metrics label.
const (
	ModeBeta    = "beta"
	ModeCredit  = "credit"
	ModePending = "pending"
)

// maxSearchPage bounds the offset computed from the page query.
const maxSearchPage = 1000

const (
	msgFirstFree  = "Votre première annonce a été publiée gratuitement !"
	msgFreeLeft   = "Annonce publiée gratuitement ! %d publication(s) restante(s)."
	msgCreditUsed = "Annonce publiée ! 1 crédit consommé."
	msgPayToShow  = "Annonce enregistrée. Envoyez la preuve de paiement de %d FCFA pour la publier."
)

// Service handles the listing lifecycle and the publish policy.
type Service struct {
	DB              *gorm.DB
	BetaFreeMode    bool
	MaxFreeListings int
	ListingFee      int64
	now             func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Input is the editable content of a listing.
type Input struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	District    string   `json:"district"`
	Photos      []string `json:"photos"`
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.District = strings.TrimSpace(in.District)
	photos := make([]string, 0, len(in.Photos))
	for _, p := range in.Photos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}
	in.Photos = photos
}

func (in Input) validate() error {
	switch {
	case in.Title == "":
		return ErrTitleRequired
	case in.Description == "":
		return ErrDescriptionRequired
	case in.Price < catalog.MinPrice:
		return ErrPriceTooLow
	case !catalog.IsCategory(in.Category):
		return ErrInvalidCategory
	case !catalog.IsCondition(in.Condition):
		return ErrInvalidCondition
	case !catalog.IsDistrict(in.District):
		return ErrInvalidDistrict
	case len(in.Photos) == 0:
		return ErrPhotoRequired
	case len(in.Photos) > catalog.MaxPhotos:
		return ErrTooManyPhotos
	}
	return nil
}

// CreateResult is returned by Create. RemainingFree is only set in beta mode.
type CreateResult struct {
	Listing       *domain.Listing `json:"listing"`
	Message       string          `json:"message"`
	RemainingFree *int            `json:"remaining_free,omitempty"`
	Mode          string          `json:"-"`
}

// Create validates and stores a listing, then applies the publish policy:
// beta mode publishes for free up to MaxFreeListings, paid mode spends a credit
// when one is available and otherwise leaves the listing pending payment.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*CreateResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	l := &domain.Listing{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		District:    in.District,
		Photos:      domain.PhotoURLs(in.Photos),
	}
	res := &CreateResult{Listing: l}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.BetaFreeMode {
			// serializes concurrent publications by the same member until commit
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", userID).First(&domain.User{}).Error; err != nil {
				return err
			}
			var count int64
			if err := tx.Model(&domain.Listing{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if int(count) >= s.MaxFreeListings {
				return &LimitError{Max: s.MaxFreeListings}
			}
			remaining := s.MaxFreeListings - int(count) - 1
			l.Status = domain.ListingActive
			res.Mode = ModeBeta
			res.RemainingFree = &remaining
			if count == 0 {
				res.Message = msgFirstFree
			} else {
				res.Message = fmt.Sprintf(msgFreeLeft, remaining)
			}
			return tx.Create(l).Error
		}

		if _, err := credits.EnsureBalance(tx, userID); err != nil {
			return err
		}
		switch err := credits.Spend(tx, userID, l.ID); {
		case err == nil:
			l.Status = domain.ListingActive
			res.Mode = ModeCredit
			res.Message = msgCreditUsed
		case errors.Is(err, credits.ErrInsufficientCredits):
			l.Status = domain.ListingPending
			res.Mode = ModePending
			res.Message = fmt.Sprintf(msgPayToShow, s.ListingFee)
		default:
			return err
		}
		return tx.Create(l).Error
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SearchParams are the public search filters. Zero values mean "no filter".
type SearchParams struct {
	Query     string
	Category  string
	Condition string
	District  string
	MinPrice  int64
	MaxPrice  int64
	Sort      string
	Order     string
	Page      int
}

// Item is a listing enriched for cards and lists.
type Item struct {
	domain.Listing
	SellerName     string   `json:"seller_name"`
	SellerRating   *float64 `json:"seller_rating"`
	PriceFormatted string   `json:"price_formatted"`
	BoostActive    bool     `json:"boost_active"`
}

// SearchResult is one page of items.
type SearchResult struct {
	Items   []Item `json:"items"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	HasMore bool   `json:"has_more"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns active listings matching p, 12 per page.
func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("status = ?", domain.ListingActive)
	if term := strings.TrimSpace(p.Query); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	if p.Category != "" {
		q = q.Where("category = ?", p.Category)
	}
	if p.Condition != "" {
		q = q.Where("condition = ?", p.Condition)
	}
	if p.District != "" {
		q = q.Where("district = ?", p.District)
	}
	if p.MinPrice > 0 {
		q = q.Where("price >= ?", p.MinPrice)
	}
	if p.MaxPrice > 0 {
		q = q.Where("price <= ?", p.MaxPrice)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	sortCol := "created_at"
	if p.Sort == "price" {
		sortCol = "price"
	}
	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > maxSearchPage {
		page = maxSearchPage
	}
	offset := (page - 1) * catalog.ItemsPerPage

	var rows []domain.Listing
	if err := q.Order(sortCol + " " + order).Order("id").
		Offset(offset).Limit(catalog.ItemsPerPage).Find(&rows).Error; err != nil {
		return nil, err
	}
	items, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: catalog.ItemsPerPage,
		HasMore: int64(offset+len(rows)) < total,
	}, nil
}

func (s *Service) enrich(ctx context.Context, rows []domain.Listing) ([]Item, error) {
	sellers, err := s.sellers(ctx, rows)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	items := make([]Item, 0, len(rows))
	for i := range rows {
		l := rows[i]
		it := Item{
			Listing:        l,
			PriceFormatted: format.FormatPrice(l.Price),
			BoostActive:    l.BoostActive(now),
		}
		if u, ok := sellers[l.UserID]; ok {
			it.SellerName = u.FullName
			it.SellerRating = u.Rating
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *Service) sellers(ctx context.Context, rows []domain.Listing) (map[uuid.UUID]domain.User, error) {
	out := make(map[uuid.UUID]domain.User)
	if len(rows) == 0 {
		return out, nil
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(rows))
	for _, l := range rows {
		if !seen[l.UserID] {
			seen[l.UserID] = true
			ids = append(ids, l.UserID)
		}
	}
	var users []domain.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Seller is the public contact card shown on a listing.
type Seller struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Rating   *float64  `json:"rating"`
	Phone    string    `json:"phone"`
	District string    `json:"district"`
}

// Detail is a listing with its seller.
type Detail struct {
	Item
	Seller *Seller `json:"seller"`
}

// Viewer identifies who is looking; the zero value is an anonymous visitor.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Get returns one listing. Non-active listings are only visible to their owner and admins.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*Detail, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.ListingActive && !viewer.IsAdmin && l.UserID != viewer.UserID {
		return nil, ErrNotFound
	}
	items, err := s.enrich(ctx, []domain.Listing{*l})
	if err != nil {
		return nil, err
	}
	d := &Detail{Item: items[0]}
	var u domain.User
	err = s.DB.WithContext(ctx).Where("id = ?", l.UserID).First(&u).Error
	switch {
	case err == nil:
		d.Seller = &Seller{
			ID:       u.ID,
			FullName: u.FullName,
			Rating:   u.Rating,
			Phone:    format.FormatPhoneNumber(u.Phone),
			District: u.District,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return d, nil
}

// Mine lists every listing of userID whatever its status, newest first.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	var rows []domain.Listing
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// ActiveBySeller lists a seller's published listings, newest first.
func (s *Service) ActiveBySeller(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	var rows []domain.Listing
	if err := s.DB.WithContext(ctx).Where("user_id = ? AND status = ?", userID, domain.ListingActive).
		Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// Quota tells the client which publish path the next listing will take.
type Quota struct {
	BetaFreeMode    bool  `json:"beta_free_mode"`
	MaxFreeListings int   `json:"max_free_listings"`
	Used            int64 `json:"used"`
	Remaining       int   `json:"remaining"`
	Credits         int   `json:"credits"`
	ListingFee      int64 `json:"listing_fee"`
}

func (s *Service) Quota(ctx context.Context, userID uuid.UUID) (*Quota, error) {
	db := s.DB.WithContext(ctx)
	var used int64
	if err := db.Model(&domain.Listing{}).Where("user_id = ?", userID).Count(&used).Error; err != nil {
		return nil, err
	}
	bal, err := credits.EnsureBalance(db, userID)
	if err != nil {
		return nil, err
	}
	q := &Quota{
		BetaFreeMode:    s.BetaFreeMode,
		MaxFreeListings: s.MaxFreeListings,
		Used:            used,
		Credits:         bal.Credits,
		ListingFee:      s.ListingFee,
	}
	if s.BetaFreeMode && int(used) < s.MaxFreeListings {
		q.Remaining = s.MaxFreeListings - int(used)
	}
	return q, nil
}

// UpdateInput carries the fields to change; nil means unchanged.
type UpdateInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *int64    `json:"price"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	District    *string   `json:"district"`
	Photos      *[]string `json:"photos"`
}

// Update edits an owned listing that is still pending or active.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*domain.Listing, error) {
	l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !l.Editable() {
		return nil, ErrNotEditable
	}
	next := Input{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Category:    l.Category,
		Condition:   l.Condition,
		District:    l.District,
		Photos:      []string(l.Photos),
	}
	if in.Title != nil {
		next.Title = *in.Title
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Price != nil {
		next.Price = *in.Price
	}
	if in.Category != nil {
		next.Category = *in.Category
	}
	if in.Condition != nil {
		next.Condition = *in.Condition
	}
	if in.District != nil {
		next.District = *in.District
	}
	if in.Photos != nil {
		next.Photos = *in.Photos
	}
	next.normalize()
	if err := next.validate(); err != nil {
		return nil, err
	}
	l.Title = next.Title
	l.Description = next.Description
	l.Price = next.Price
	l.Category = next.Category
	l.Condition = next.Condition
	l.District = next.District
	l.Photos = domain.PhotoURLs(next.Photos)
	if err := s.DB.WithContext(ctx).Save(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// MarkSold moves an owned active listing to sold.
func (s *Service) MarkSold(ctx context.Context, userID, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.ListingActive {
		return nil, ErrNotActive
	}
	l.Status = domain.ListingSold
	if err := s.DB.WithContext(ctx).Model(l).Update("status", domain.ListingSold).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// Delete removes an owned listing and the favorites pointing at it.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return Remove(s.DB.WithContext(ctx), id)
}

// Remove deletes a listing and its favorites without ownership checks (admin path).
func Remove(db *gorm.DB, id uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&domain.Favorite{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Listing{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, ErrNotOwner
	}
	return l, nil
}
