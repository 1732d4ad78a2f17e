package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"

	"github.com/getyoursite/getyoursite/app/controllers"
	"github.com/getyoursite/getyoursite/internal/pkg/cache"
	"github.com/getyoursite/getyoursite/internal/pkg/constants"
	"github.com/getyoursite/getyoursite/internal/pkg/database"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
	"github.com/getyoursite/getyoursite/internal/pkg/hcaptcha"
	"github.com/getyoursite/getyoursite/internal/pkg/mail"
	"github.com/getyoursite/getyoursite/internal/pkg/metrics"
	"github.com/getyoursite/getyoursite/internal/pkg/middleware"
	"github.com/getyoursite/getyoursite/internal/pkg/payment"
	"github.com/getyoursite/getyoursite/internal/pkg/ratelimit"
	"github.com/getyoursite/getyoursite/internal/pkg/router"
)

func main() {
	app, cleanup, err := NewApplication()
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("listen: %v", err)
	}
	cleanup()
}

func NewApplication() (*fiber.App, func(), error) {
	env.SetupEnvFile()
	ctx := context.Background()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	m := metrics.New()

	repo, closeRepo, err := newRepository(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeRepo)

	var provider payment.Provider
	stripeProvider, err := payment.NewStripeProvider(env.GetEnv("STRIPE_API_KEY", ""), env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	if err != nil {
		log.Warnf("Stripe is not configured, checkout is disabled: %v", err)
	} else {
		provider = stripeProvider
	}
	paymentService := payment.NewService(repo, provider, payment.WithMetrics(m))

	contactLimiter, apiStorage, closeLimiter := newLimiters()
	closers = append(closers, closeLimiter)

	notifier := mail.NewSMTPNotifier(mail.ConfigFromEnv())
	if !notifier.Enabled() {
		log.Warn("Mail credentials missing or placeholder, contact messages are only logged")
	}

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/getyoursite to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		return nil, cleanup, fmt.Errorf("could not find project root directory")
	}

	fiberCfg := fiber.Config{
		Views:        html.New(basePath+"views", ".html"),
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		BodyLimit:    1 << 20,
		ErrorHandler: middleware.ErrorHandler,
	}
	proxy := middleware.ProxyConfigFromEnv()
	if proxy.Header != "" && len(proxy.Trusted) == 0 {
		log.Warnf("PROXY_HEADER=%s is ignored until TRUSTED_PROXIES is set", proxy.Header)
	}
	proxy.Apply(&fiberCfg)
	app := fiber.New(fiberCfg)

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: middleware.RequestIDKey,
	}))
	app.Use(recover.New(), logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid} | ${error}\n",
	}))

	secCfg := middleware.SecurityConfigFromEnv()
	app.Use(middleware.Security(secCfg), middleware.CORS(secCfg))
	app.Use(m.Middleware())

	// monitoring
	creds := middleware.MetricsCredentialsFromEnv()
	if creds.Configured() {
		auth := middleware.BasicAuth(creds)
		app.Get(constants.MetricsRoute, auth, monitor.New(monitor.Config{Title: "GetYourSite Metrics"}))
		app.Get(constants.MetricsRoute+"/prometheus", auth, m.Handler())
	} else {
		log.Warn("METRICS_PASSWORD not set, /metrics is disabled")
	}

	// static files
	app.Static(constants.StaticRoute, basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: constants.DocsRoute,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "api",
		Title:    "GetYourSite API",
	}))

	pages := controllers.NewPageController()
	contactController := controllers.NewContactController(notifier, m)
	if captcha := hcaptcha.FromEnv(); captcha != nil {
		pages.WithCaptchaSiteKey(captcha.SiteKey)
		contactController.WithCaptcha(captcha)
	}

	router.InstallRouter(app, router.Dependencies{
		Pages:          pages,
		Contact:        contactController,
		Payments:       controllers.NewPaymentController(paymentService).WithTrustedOrigins(secCfg.TrustedOrigins),
		ContactLimiter: contactLimiter,
		APIStorage:     apiStorage,
		Metrics:        m,
	})

	return app, cleanup, nil
}

// newRepository selects the transaction store from STORE_DRIVER.
func newRepository(ctx context.Context) (payment.Repository, func(), error) {
	driver := strings.ToLower(env.GetEnv("STORE_DRIVER", "mongo"))
	switch driver {
	case "mongo":
		db, err := database.SetupMongo(ctx)
		if err != nil {
			return nil, func() {}, err
		}
		repo := payment.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, func() {}, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = database.CloseMongo(closeCtx)
		}, nil
	case "mysql":
		if err := database.SetupDatabase(); err != nil {
			return nil, func() {}, err
		}
		return payment.NewGormRepository(database.GetDB()), func() {
			if sqlDB, err := database.GetDB().DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	case "memory":
		log.Warn("STORE_DRIVER=memory, transactions are lost on restart")
		return payment.NewMemoryRepository(), func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown STORE_DRIVER %q", driver)
}

// newLimiters builds the contact limiter and the storage of the coarse API
// limiter from RATE_LIMIT_STORE. Redis falls back to memory when unreachable.
func newLimiters() (ratelimit.Limiter, fiber.Storage, func()) {
	cfg := ratelimit.Config{
		Max:      env.GetEnvInt("RATE_LIMIT_MAX", ratelimit.DefaultMax),
		Window:   env.GetEnvDuration("RATE_LIMIT_WINDOW", ratelimit.DefaultWindow),
		Capacity: env.GetEnvInt("RATE_LIMIT_CAPACITY", ratelimit.DefaultCapacity),
	}

	if strings.ToLower(env.GetEnv("RATE_LIMIT_STORE", "memory")) == "redis" {
		if err := cache.SetupCache(); err == nil {
			log.Info("Rate limiting backed by Redis")
			return ratelimit.NewRedisLimiter(cache.GetClient(), cfg),
				cache.NewFiberStorage(cache.LimiterDatabase),
				func() { _ = cache.Close() }
		}
		log.Warn("Redis unavailable, rate limiting falls back to memory")
	}

	l := ratelimit.NewMemoryLimiter(cfg)
	l.Start()
	return l, nil, l.Stop
}
