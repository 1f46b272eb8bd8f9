package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shuttlepoint/server/docs"
	"github.com/shuttlepoint/server/internal/app/api/handlers"
	mw "github.com/shuttlepoint/server/internal/app/api/middleware"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/app/service/reconciler"
	"github.com/shuttlepoint/server/internal/app/service/registration"
	cfgpkg "github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/metrics"
)

// newEngine takes the tracer provider so spans started by the trace
// middleware go to the configured exporter.
func newEngine(cfg *cfgpkg.Config, _ trace.TracerProvider) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log          *zap.SugaredLogger
	Cfg          *cfgpkg.Config
	Registration *registration.Service
	Orders       *pointsorder.Service
	Ledger       *ledger.Service
	Reconciler   *reconciler.Reconciler
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log, cfg := d.Log, d.Cfg
	// Prometheus metrics
	if cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{Logger: log})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	// Gateway callbacks authenticate through TradeSha, not member tokens.
	handlers.RegisterNewebPayRoutes(apiV1, d.Orders, d.Reconciler, log)

	if cfg.Auth.JWTSecret == "" {
		log.Warnw("auth.jwt_secret is empty, member routes will reject every request")
	}
	member := apiV1.Group("", mw.MemberAuthMiddleware(cfg.Auth.JWTSecret))
	handlers.RegisterRegistrationRoutes(member, d.Registration, log)
	handlers.RegisterPointsRoutes(apiV1, member, d.Orders, d.Ledger, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
