package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"legalconnect.io/portal/internal/config"
	"legalconnect.io/portal/internal/metrics"
	"legalconnect.io/portal/internal/middleware"
	"legalconnect.io/portal/pkg/storage"
	"legalconnect.io/portal/pkg/token"

	accountClient "legalconnect.io/portal/internal/modules/account/client"

	catalogHttp "legalconnect.io/portal/internal/modules/catalog/delivery/http"
	catalogRepo "legalconnect.io/portal/internal/modules/catalog/repository"
	catalogService "legalconnect.io/portal/internal/modules/catalog/service"

	faqHttp "legalconnect.io/portal/internal/modules/faq/delivery/http"
	faqRepo "legalconnect.io/portal/internal/modules/faq/repository"
	faqService "legalconnect.io/portal/internal/modules/faq/service"

	notiHttp "legalconnect.io/portal/internal/modules/notification/delivery/http"
	notifRepo "legalconnect.io/portal/internal/modules/notification/repository"
	notifService "legalconnect.io/portal/internal/modules/notification/service"

	registrationHttp "legalconnect.io/portal/internal/modules/registration/delivery/http"
	registrationRepo "legalconnect.io/portal/internal/modules/registration/repository"
	registrationService "legalconnect.io/portal/internal/modules/registration/service"

	signinHttp "legalconnect.io/portal/internal/modules/signin/delivery/http"
	signinService "legalconnect.io/portal/internal/modules/signin/service"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 12 * time.Hour
)

// Deps are the connections opened by the caller. Meili and Storage may be
// nil: FAQ search then falls back to the database and uploads are refused.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Meili   meilisearch.ServiceManager
	Storage storage.DocumentStorage
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Server struct {
	engine  *gin.Engine
	faqs    faqService.FAQService
	sweeper *registrationService.DocumentSweeper
	log     *zap.Logger
}

func NewServer(d Deps) *Server {
	cfg := d.Config
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	tokens := token.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	upstream := accountClient.New(accountClient.Config{
		MarketplaceURL: cfg.MarketplaceAPIURL,
		AuthURL:        cfg.AuthServiceURL,
		Timeout:        cfg.UpstreamTimeout,
	}, d.Logger)

	catalogSvc := catalogService.NewCatalogService(catalogRepo.NewCatalogRepository(d.DB))
	catalogHandler := catalogHttp.NewCatalogHandler(catalogSvc)

	var faqIndex faqRepo.FAQIndex
	if d.Meili != nil {
		faqIndex = faqRepo.NewMeiliFAQIndex(d.Meili)
	}
	faqSvc := faqService.NewFAQService(faqRepo.NewFAQRepository(d.DB), faqIndex, d.Logger)
	faqHandler := faqHttp.NewFAQHandler(faqSvc)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(d.Redis))
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, cfg.AllowedOrigins, d.Logger)

	sessionRepo := registrationRepo.NewSessionRepository(d.Redis, cfg.RegistrationSessionTTL, cfg.SubmitLockTTL)
	var sweeper *registrationService.DocumentSweeper
	if d.Storage != nil {
		sweeper = registrationService.NewDocumentSweeper(sessionRepo, d.Storage, 2*cfg.RegistrationSessionTTL, d.Logger)
	}
	registrationSvc := registrationService.NewRegistrationService(registrationService.Options{
		Repo:          sessionRepo,
		Storage:       d.Storage,
		Accounts:      upstream,
		Auth:          upstream,
		Catalogs:      catalogSvc,
		Notifications: notificationSvc,
		Tokens:        tokens,
		Metrics:       d.Metrics,
		Logger:        d.Logger,
		SessionTTL:    cfg.RegistrationSessionTTL,
		UploadFolder:  cfg.CloudinaryUploadFolder,
	})
	registrationHandler := registrationHttp.NewRegistrationHandler(registrationSvc)

	signinSvc := signinService.NewSignInService(upstream, tokens, d.Redis, cfg.SubmitLockTTL, d.Metrics, d.Logger)
	signinHandler := signinHttp.NewSignInHandler(signinSvc)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics"},
	}))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))

	sessionMiddleware := middleware.NewSessionMiddleware(tokens)

	api := router.Group("/api")

	// Public routes (no session required)
	api.GET("/catalogs", catalogHandler.GetAllCatalogs)
	api.GET("/catalogs/:kind", catalogHandler.GetCatalog)

	api.GET("/faqs", faqHandler.GetAnsweredFAQs)
	api.POST("/faqs", faqHandler.AskFAQ)
	api.GET("/faqs/search", faqHandler.SearchFAQs)

	api.POST("/auth/signin", signinHandler.SignIn)
	api.POST("/registration/sessions", registrationHandler.StartSession)

	session := api.Group("/registration/session")
	session.Use(sessionMiddleware.RequireFormSession())
	{
		session.GET("", registrationHandler.GetSession)
		session.PATCH("", registrationHandler.UpdateSession)
		session.DELETE("", registrationHandler.EndSession)
		session.POST("/selections/:group", registrationHandler.ToggleSelection)
		session.POST("/documents/:slot", registrationHandler.UploadDocument)
		session.DELETE("/documents/:slot", registrationHandler.ClearDocument)
		session.POST("/submit", registrationHandler.Submit)
		session.GET("/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:  router,
		faqs:    faqSvc,
		sweeper: sweeper,
		log:     d.Logger,
	}
}

// Handler is the traced root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "portal")
}

// ReindexFAQs pushes the answered FAQs to the search index.
func (s *Server) ReindexFAQs(ctx context.Context) (int, error) {
	return s.faqs.Reindex(ctx)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
// Open websockets see their request context cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.sweeper != nil {
		g.Go(func() error {
			s.sweeper.Start(gctx, sweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
