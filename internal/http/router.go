package http

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/JeandreDegenaar/q1-profiles/internal/auth"
	"github.com/JeandreDegenaar/q1-profiles/internal/cache"
	"github.com/JeandreDegenaar/q1-profiles/internal/config"
	"github.com/JeandreDegenaar/q1-profiles/internal/domain/user"
	"github.com/JeandreDegenaar/q1-profiles/internal/http/handlers"
	"github.com/JeandreDegenaar/q1-profiles/internal/http/middlewares"
	"github.com/JeandreDegenaar/q1-profiles/internal/observability"
	"github.com/JeandreDegenaar/q1-profiles/internal/sanitize"
	"github.com/JeandreDegenaar/q1-profiles/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UsersStore is everything the HTTP layer asks of the credential store.
// Satisfied by both the postgres and the memory repo.
type UsersStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (user.User, error)
	Create(ctx context.Context, n user.NewUser) (user.User, error)
	UpdateByID(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
}

var validatorSetup sync.Once

// registerValidators adds the custom binding tags. Both are backed by the
// shared sanitizer predicate.
func registerValidators() {
	validatorSetup.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)

		if !ok {
			return
		}

		_ = v.RegisterValidation("uname", func(fl validator.FieldLevel) bool {
			return user.ValidUsername(strings.TrimSpace(fl.Field().String()))
		})

		_ = v.RegisterValidation("sanitized", func(fl validator.FieldLevel) bool {
			return !sanitize.IsInvalid(fl.Field().String())
		})
	})
}

// NewRouter wires the full middleware chain and routes. prom and reg come
// from main so the store shares the same metrics; tests pass nil for both
// and get a private registry.
func NewRouter(log *slog.Logger, store UsersStore, c cache.Cache, ping func() error, prom *observability.Prom, reg *prometheus.Registry, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidators()

	if prom == nil || reg == nil {
		reg = prometheus.NewRegistry()
		prom = observability.NewProm(reg)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(otelgin.Middleware("q1-profiles"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.ValidateBody())

	// health + metrics

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up auth plumbing

	hasher := security.NewHasher(cfg.BcryptCost)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	authHandler := handlers.NewAuthHandler(store, hasher, jwtManager, prom, log)
	profileHandler := handlers.NewProfileHandler(store, c, log)

	// public routes
	r.POST("/signup", authHandler.SignUp)
	r.POST("/login", authHandler.Login)

	// protected routes
	r.GET("/profile", authMw.RequireAuth(), profileHandler.Get)
	r.PUT("/profile", authMw.RequireAuth(), profileHandler.Update)

	return r
}
