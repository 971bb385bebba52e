package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/bookstore/internal/auth"
	"github.com/geocoder89/bookstore/internal/cache"
	"github.com/geocoder89/bookstore/internal/domain/account"
	"github.com/geocoder89/bookstore/internal/domain/role"
	"github.com/geocoder89/bookstore/internal/http/handlers"
	"github.com/geocoder89/bookstore/internal/http/middlewares"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/geocoder89/bookstore/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	handlers.AccountStore
}

type TokenService interface {
	Issue(accountID int64, email string, r role.Role) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// Deps is everything the router wires into handlers. Cache, Images, Prom and
// Gatherer are optional.
type Deps struct {
	Env string

	Accounts AccountRepo
	Books    handlers.BookStore
	Reviews  handlers.ReviewStore
	Tokens   TokenService

	Cache     cache.Store
	Images    storage.ImageStore
	UploadDir string // served under /uploads when set

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64

	Readiness []handlers.Pinger
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = d.MaxUploadBytes

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	// multipart bodies carry the image plus form fields
	r.Use(middlewares.BodyLimit(d.MaxBodyBytes, d.MaxUploadBytes+(1<<20)))

	// operational

	health := handlers.NewHealthHandler(d.Readiness...)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	if d.UploadDir != "" {
		r.Static(storage.UploadsPrefix, d.UploadDir)
	}

	// wire up handlers

	var recorder middlewares.DecisionRecorder
	var cacheRecorder handlers.CacheRecorder
	var gateRecorder handlers.OwnershipRecorder
	if d.Prom != nil {
		recorder, cacheRecorder, gateRecorder = d.Prom, d.Prom, d.Prom
	}

	catalog := handlers.NewCatalogCache(d.Cache, cacheRecorder)

	authMW := middlewares.NewAuthMiddleware(d.Tokens, recorder)
	authH := handlers.NewAuthHandler(d.Accounts, d.Tokens)
	booksH := handlers.NewBooksHandler(d.Books, d.Images, catalog, d.MaxUploadBytes)
	reviewsH := handlers.NewReviewsHandler(d.Reviews, catalog, gateRecorder)
	accountsH := handlers.NewAccountsHandler(d.Accounts, catalog)

	jsonOnly := middlewares.RequireContentType("application/json")
	formOnly := middlewares.RequireContentType("multipart/form-data", "application/x-www-form-urlencoded")

	api := r.Group("/api")

	// public
	api.GET("/home", booksH.Home)
	api.GET("/categories", booksH.Categories)
	api.GET("/books/:id", booksH.Get)
	api.GET("/books/:id/reviews", reviewsH.ListForBook)
	api.POST("/register", jsonOnly, authH.Register)
	api.POST("/login", jsonOnly, authH.Login)

	// any signed-in account
	authed := api.Group("")
	authed.Use(authMW.RequireAuth())
	{
		authed.POST("/books/:id/reviews", jsonOnly, reviewsH.Create)
		authed.PUT("/reviews/:id", jsonOnly, reviewsH.Update)
		authed.DELETE("/reviews/:id", reviewsH.Delete)

		authed.GET("/user/profile", accountsH.GetProfile("User not found"))
		authed.PUT("/user/profile", jsonOnly, accountsH.UpdateProfile("User not found"))
		authed.DELETE("/user/profile", accountsH.DeleteOwnAccount)

		authed.DELETE("/admin/profile", accountsH.DeleteAdminAccount)
	}

	// administrators
	admin := authed.Group("")
	admin.Use(authMW.RequireRole(role.Admin))
	{
		admin.POST("/books", formOnly, booksH.Create)
		admin.PUT("/books/:id", formOnly, booksH.Update)
		admin.DELETE("/books/:id", booksH.Delete)

		admin.GET("/admin/profile", accountsH.GetProfile("Admin not found"))
		admin.PUT("/admin/profile", jsonOnly, accountsH.UpdateProfile("Admin not found"))

		admin.GET("/users", accountsH.ListUsers)
		admin.POST("/users", jsonOnly, accountsH.CreateUser)
		admin.DELETE("/users/:id", accountsH.DeleteUser)
	}

	return r
}
