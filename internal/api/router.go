package api

import (
	"math/rand"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/brightpath/accounts-api/docs"
	"github.com/brightpath/accounts-api/internal/api/handler"
	"github.com/brightpath/accounts-api/internal/api/metrics"
	"github.com/brightpath/accounts-api/internal/api/middleware"
	"github.com/brightpath/accounts-api/internal/core/password"
	"github.com/brightpath/accounts-api/internal/core/ports"
	"github.com/brightpath/accounts-api/internal/core/service"
	"github.com/brightpath/accounts-api/internal/core/token"
	"github.com/brightpath/accounts-api/internal/core/username"
	mongostore "github.com/brightpath/accounts-api/internal/infrastructure/db/mongo"
	redisstore "github.com/brightpath/accounts-api/internal/infrastructure/db/redis"
	"github.com/brightpath/accounts-api/internal/infrastructure/http/handlers"
)

// Dependencies carries everything the router needs to assemble the
// service graph.
type Dependencies struct {
	DB         *mongo.Database
	Redis      *redis.Client
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	Providers  []ports.OAuthProvider
	Events     ports.EventSink
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes
// registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accounts"))

	// --- Dependencies ---
	store := mongostore.NewAccountStore(deps.DB)
	hasher := password.NewHasher(deps.BcryptCost)
	usernames := username.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())), nil)
	usernames.OnFallback(metrics.UsernameFallbacksTotal.Inc)
	issuer := token.NewIssuer(deps.JWTSecret, deps.TokenTTL)
	states := redisstore.NewStateStore(deps.Redis)

	authService := service.NewAuthService(store, hasher, usernames, issuer, deps.Events, deps.Log)
	userService := service.NewUserService(store)

	authHandler := handler.NewAuthHandler(authService, deps.Providers, states)
	userHandler := handler.NewUserHandler(userService)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/sign-up", authHandler.SignUp)
	e.POST("/auth/sign-in", authHandler.SignIn)
	e.GET("/auth/:provider", authHandler.OAuthStart)
	e.GET("/auth/:provider/callback", authHandler.OAuthCallback)

	// --- User routes ---
	e.GET("/users/me", userHandler.Me, authMiddleware)
	e.GET("/users/:id", userHandler.Get)
	e.GET("/users", userHandler.List)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.DB, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
