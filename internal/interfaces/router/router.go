package router

import (
	"net/http"
	"time"

	adminsvc "daloamarket-backend/internal/application/admin"
	authsvc "daloamarket-backend/internal/application/auth"
	creditsvc "daloamarket-backend/internal/application/credits"
	emailsvc "daloamarket-backend/internal/application/emails"
	favsvc "daloamarket-backend/internal/application/favorites"
	healthsvc "daloamarket-backend/internal/application/health"
	listsvc "daloamarket-backend/internal/application/listings"
	msgsvc "daloamarket-backend/internal/application/messages"
	"daloamarket-backend/internal/application/realtime"
	relaysvc "daloamarket-backend/internal/application/relay"
	reviewsvc "daloamarket-backend/internal/application/reviews"
	uploadsvc "daloamarket-backend/internal/application/uploads"
	usersvc "daloamarket-backend/internal/application/user"
	"daloamarket-backend/internal/config"
	"daloamarket-backend/internal/infrastructure/cache"
	"daloamarket-backend/internal/infrastructure/database"
	adminhandler "daloamarket-backend/internal/interfaces/handlers/admin"
	authhandler "daloamarket-backend/internal/interfaces/handlers/auth"
	cataloghandler "daloamarket-backend/internal/interfaces/handlers/catalog"
	credithandler "daloamarket-backend/internal/interfaces/handlers/credits"
	favhandler "daloamarket-backend/internal/interfaces/handlers/favorites"
	healthhandler "daloamarket-backend/internal/interfaces/handlers/health"
	listhandler "daloamarket-backend/internal/interfaces/handlers/listings"
	msghandler "daloamarket-backend/internal/interfaces/handlers/messages"
	relayhandler "daloamarket-backend/internal/interfaces/handlers/relay"
	reviewhandler "daloamarket-backend/internal/interfaces/handlers/reviews"
	uploadhandler "daloamarket-backend/internal/interfaces/handlers/uploads"
	userhandler "daloamarket-backend/internal/interfaces/handlers/user"
	"daloamarket-backend/internal/metrics"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime exposes what the process needs beyond the HTTP app: the background
// jobs share the database and the message limiter.
type Runtime struct {
	DB             *gorm.DB
	Rdb            *redis.Client
	MessageLimiter *middleware.RateLimiter
}

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *Runtime, error) {
	rdb, err := cache.Open(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
	}
	rt := &Runtime{
		DB:             db,
		Rdb:            rdb,
		MessageLimiter: middleware.NewRateLimiter(cfg.MessageRatePerSecond, cfg.MessageRateBurst, "Trop de messages, réessayez dans un instant"),
	}
	return Build(cfg, rt), rt, nil
}

// Build wires the routes on already opened connections. A nil DB serves only
// the health and metrics endpoints.
func Build(cfg *config.Config, rt *Runtime) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               12 * 1024 * 1024,
	})
	rdb, db := rt.Rdb, rt.DB

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(metrics.Middleware())
	app.Use(middleware.HealthMarker(rdb))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	emailSender := emailsvc.NewSender(cfg.EmailProvider, cfg.ResendAPIKey, cfg.SendinblueAPIKey, cfg.MailFrom)
	creditService := &creditsvc.Service{DB: db}
	relayService := &relaysvc.Service{
		DB:           db,
		Emails:       emailSender,
		Credits:      creditService,
		SupportEmail: cfg.SupportEmail,
		ListingFee:   cfg.ListingFeeFCFA,
	}
	rh := &relayhandler.Handlers{Service: relayService}

	// Public relays are called from any origin and sit in front of the origin-checking CORS.
	relayCORS := cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "POST,OPTIONS", AllowHeaders: "Content-Type, Authorization"})
	relayLimit := limiter.New(limiter.Config{
		Max:        cfg.RelayMaxPerMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Trop de requêtes, réessayez plus tard"})
		},
	})
	if db != nil {
		app.All("/api/v1/payments/listing-proof", relayCORS, relayhandler.PostOnly, relayLimit, rh.ListingProof)
		app.All("/api/v1/support/contact", relayCORS, relayhandler.PostOnly, relayLimit, rh.Support)
	}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(rdb))

	hh := &healthhandler.Handlers{
		Service:        &healthsvc.Service{Rdb: rdb},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if db != nil {
		hh.Service.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if db == nil {
		return app
	}

	sessionCfg := middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	api := app.Group("/api/v1")
	auth := middleware.RequireAuth()

	ch := &cataloghandler.Handlers{Beta: cataloghandler.Beta{
		FreeMode:        cfg.BetaFreeMode,
		MaxFreeListings: cfg.MaxFreeListings,
		ListingFee:      cfg.ListingFeeFCFA,
	}}
	api.Get("/catalog", ch.Get)

	// Auth
	ah := &authhandler.Handlers{
		Service: &authsvc.Service{DB: db, Rdb: rdb, Emails: emailSender, AdminEmails: cfg.AdminEmails},
		Rdb:     rdb,
		Config:  sessionCfg,
	}
	ag := api.Group("/auth")
	ag.Post("/register", ah.Register)
	ag.Post("/login", ah.Login)
	ag.Post("/otp/request", ah.RequestCode)
	ag.Post("/otp/verify", ah.VerifyCode)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)

	// Listings
	listingService := &listsvc.Service{
		DB:              db,
		BetaFreeMode:    cfg.BetaFreeMode,
		MaxFreeListings: cfg.MaxFreeListings,
		ListingFee:      cfg.ListingFeeFCFA,
	}
	lh := &listhandler.Handlers{Service: listingService}
	lg := api.Group("/listings")
	lg.Get("/", lh.Search)
	lg.Post("/", auth, lh.Create)
	lg.Get("/mine", auth, lh.Mine)
	lg.Get("/quota", auth, lh.Quota)
	lg.Get("/:id", lh.Get)
	lg.Put("/:id", auth, lh.Update)
	lg.Patch("/:id/sold", auth, lh.MarkSold)
	lg.Delete("/:id", auth, lh.Delete)

	// Users and reviews
	reviewService := &reviewsvc.Service{DB: db}
	uh := &userhandler.Handlers{Service: &usersvc.Service{DB: db, Listings: listingService, Reviews: reviewService}}
	revh := &reviewhandler.Handlers{Service: reviewService}
	ug := api.Group("/users")
	ug.Get("/me", auth, uh.Me)
	ug.Put("/me", auth, uh.UpdateMe)
	ug.Get("/:id/profile", uh.Profile)
	ug.Get("/:id/reviews", revh.ForUser)
	api.Post("/reviews", auth, revh.Create)

	// Uploads
	storage := &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey}
	uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{Client: storage, SupabaseURL: cfg.SupabaseURL, Bucket: cfg.ListingBucket}}
	api.Post("/uploads/listing-photo", auth, uph.ListingPhoto)

	// Messages
	hub := &realtime.Hub{Rdb: rdb}
	mh := &msghandler.Handlers{Service: &msgsvc.Service{DB: db, Hub: hub}, Hub: hub}
	mg := api.Group("/messages", auth)
	mg.Post("/", rt.MessageLimiter.Handler(), mh.Send)
	mg.Get("/conversations", mh.Conversations)
	mg.Get("/thread", mh.Thread)
	mg.Patch("/read", mh.MarkRead)
	mg.Get("/unread-count", mh.UnreadCount)
	mg.Get("/stream", mh.Stream)

	// Credits
	crh := &credithandler.Handlers{Service: creditService}
	api.Get("/credits/packs", crh.Packs)
	api.Get("/credits", auth, crh.Balance)
	api.Get("/credits/transactions", auth, crh.Transactions)
	api.Post("/payments/credit-proof", auth, rh.CreditProof)

	// Favorites
	fh := &favhandler.Handlers{Service: &favsvc.Service{DB: db}}
	fg := api.Group("/favorites", auth)
	fg.Get("/", fh.List)
	fg.Post("/:listing_id", fh.Add)
	fg.Delete("/:listing_id", fh.Remove)

	// Admin
	adh := &adminhandler.Handlers{Service: &adminsvc.Service{DB: db, Rdb: rdb, Credits: creditService}}
	adg := api.Group("/admin", auth)
	adg.Get("/users", middleware.AuthorizePermission(constants.ManageUsers), adh.Users)
	adg.Patch("/users/:id/ban", middleware.AuthorizePermission(constants.ManageUsers), adh.ToggleBan)
	adg.Patch("/users/:id/role", middleware.AuthorizePermission(constants.ManageUsers), adh.SetRole)
	adg.Patch("/users/:id/credits", middleware.AuthorizePermission(constants.ManageCredits), adh.SetCredits)
	adg.Post("/users/:id/credit-packs", middleware.AuthorizePermission(constants.ManageCredits), adh.AddPack)
	adg.Get("/listings", middleware.AuthorizePermission(constants.ModerateListings), adh.Listings)
	adg.Patch("/listings/:id/approve", middleware.AuthorizePermission(constants.ModerateListings), adh.Approve)
	adg.Patch("/listings/:id/disable", middleware.AuthorizePermission(constants.ModerateListings), adh.Disable)
	adg.Patch("/listings/:id/sold", middleware.AuthorizePermission(constants.ModerateListings), adh.MarkSold)
	adg.Delete("/listings/:id", middleware.AuthorizePermission(constants.ModerateListings), adh.DeleteListing)
	adg.Get("/credits", middleware.AuthorizePermission(constants.ViewAdminData), adh.Balances)
	adg.Get("/transactions", middleware.AuthorizePermission(constants.ViewAdminData), adh.Transactions)
	adg.Patch("/transactions/:id/validate", middleware.AuthorizePermission(constants.ManageCredits), adh.ValidateTransaction)
	adg.Patch("/transactions/:id/reject", middleware.AuthorizePermission(constants.ManageCredits), adh.RejectTransaction)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
