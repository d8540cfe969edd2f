package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/p-iacone88/booksearch/internal/config"
	"github.com/p-iacone88/booksearch/internal/http/handlers"
	"github.com/p-iacone88/booksearch/internal/http/middlewares"
	"github.com/p-iacone88/booksearch/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const graphqlPath = "/graphql"

type RouterDeps struct {
	GraphQL handlers.GraphQLExecutor
	Tokens  middlewares.TokenVerifier

	// Health serves /healthz and /readyz. When nil one is built from Ping,
	// and a nil Ping means always ready.
	Health *handlers.HealthHandler
	Ping   func(ctx context.Context) error

	// Prom and Gatherer are optional; without Prom there is no /metrics.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, deps RouterDeps) *gin.Engine {
	if cfg.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.Use(otelgin.Middleware("booksearch"))
	r.Use(middlewares.SecurityHeaders(graphqlPath))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// health
	h := deps.Health
	if h == nil {
		h = handlers.NewHealthHandler(deps.Ping)
	}
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Prom != nil {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// GraphiQL is a development aid only
	if cfg.Env == "dev" {
		r.GET(graphqlPath, handlers.Playground)
	}

	authMw := middlewares.NewAuthMiddleware(deps.Tokens)
	limiter := middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	gql := handlers.NewGraphQLHandler(deps.GraphQL)

	r.POST(graphqlPath,
		middlewares.RequireJSON(),
		authMw.Authenticate(),
		limiter.Middleware(middlewares.KeyByUserOrIP),
		gql.Serve,
	)

	return r
}
