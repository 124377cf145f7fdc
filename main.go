package main

import (
	"context"
	"errors"
	"html/template"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/SahilBhatkande/portfolio/internal/config"
	"github.com/SahilBhatkande/portfolio/internal/contact"
	"github.com/SahilBhatkande/portfolio/internal/middleware"
	"github.com/SahilBhatkande/portfolio/internal/portfolio"
	"github.com/SahilBhatkande/portfolio/internal/relay"
	"github.com/SahilBhatkande/portfolio/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type server struct {
	cfg     *config.Config
	content *portfolio.Content
	forms   *contact.Registry
	store   *store
	redis   *goredis.Client
	limiter *middleware.RateLimiter
	logins  *middleware.RateLimiter
	admin   *adminAuth
	log     *slog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	logger.Init(gin.Mode() == gin.DebugMode)

	content, err := portfolio.Load(os.Getenv("CONTENT_PATH"))
	if err != nil {
		logger.Log.Error("Failed to load portfolio content", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cfg.DatabasePath)
	if err != nil {
		logger.Log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = middleware.NewRedisClient(context.Background(), cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting in memory", "error", err)
		} else {
			defer rdb.Close()
		}
	}

	s := newServer(cfg, content, newRelay(cfg), st, rdb, logger.Log)
	r := s.routes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go s.forms.Run(ctx, time.Minute)
	go s.maintenance(ctx, time.Hour)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Log.Info("Portfolio listening", "port", cfg.Port, "relay", cfg.RelayDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Shutdown failed", "error", err)
	}
}

func newRelay(cfg *config.Config) contact.Relay {
	if cfg.RelayDriver == "smtp" {
		r := relay.NewSMTP(relay.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       cfg.ContactTo,
		})
		if !r.IsConfigured() {
			logger.Log.Warn("SMTP relay is not configured; contact messages will fail")
		}
		return r
	}
	r := relay.NewEmailJS(relay.EmailJSConfig{
		PublicKey:  cfg.EmailJSPublicKey,
		PrivateKey: cfg.EmailJSPrivateKey,
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		Endpoint:   cfg.EmailJSEndpoint,
		Timeout:    cfg.RelayTimeout,
	}, nil)
	if !r.IsConfigured() {
		logger.Log.Warn("EmailJS relay is not configured; contact messages will fail")
	}
	return r
}

func newServer(cfg *config.Config, content *portfolio.Content, r contact.Relay, st *store, rdb *goredis.Client, log *slog.Logger) *server {
	opts := contact.Options{
		ToName:          cfg.ContactToName,
		FallbackAddress: cfg.ContactFallback,
		SuccessText:     ContactSuccess,
		FailureText:     ContactFailure,
		Timeout:         cfg.RelayTimeout,
		Logger:          log,
	}
	return &server{
		cfg:     cfg,
		content: content,
		forms:   contact.NewRegistry(r, opts, cfg.FormTTL),
		store:   st,
		redis:   rdb,
		limiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			Limit:     cfg.ContactRateLimit,
			Window:    cfg.ContactRateWindow,
			KeyPrefix: "rl:contact:",
		}, rdb, log),
		logins: middleware.NewRateLimiter(middleware.RateLimitConfig{
			Limit:     10,
			Window:    15 * time.Minute,
			KeyPrefix: "rl:login:",
		}, rdb, log),
		admin: newAdminAuth(cfg),
		log:   log,
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders(gin.Mode() == gin.ReleaseMode))
	r.Use(middleware.ErrorHandler(s.log))
	if s.cfg.VisitorTracking {
		r.Use(s.visitorTrackingMiddleware())
	}

	r.SetFuncMap(template.FuncMap{"join": strings.Join})
	r.LoadHTMLGlob(s.cfg.TemplateGlob)

	r.Static("/images", filepath.Join(s.cfg.StaticDir, "images"))
	r.Static("/static", s.cfg.StaticDir)

	// Home page route
	r.GET("/", func(c *gin.Context) {
		id, view := s.forms.Peek("")
		c.HTML(http.StatusOK, "index.html", gin.H{
			"content": s.content,
			"theme":   themeFromCookie(c),
			"form":    s.contactFormData(id, view),
		})
	})

	// HTMX contact form fragment, also polled while a send is in flight
	r.GET("/contact-form", func(c *gin.Context) {
		id, view := s.forms.Peek(c.Query("form"))
		c.HTML(http.StatusOK, "contact.html", s.contactFormData(id, view))
	})

	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", gin.H{"experience": s.content.Experience})
	})

	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", gin.H{
			"skills":    s.content.Skills,
			"education": s.content.Education,
		})
	})

	r.GET("/projects-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "projects-content.html", gin.H{"projects": s.content.Projects})
	})

	r.POST("/theme", toggleTheme)
	r.GET("/healthz", s.health)

	r.POST("/contact", s.limiter.Middleware(), s.submitContactForm)
	r.POST("/api/contact", s.limiter.Middleware(), s.submitContactAPI)

	s.setupAdminRoutes(r)
	return r
}

// maintenance prunes expired visitor rows and rate-limit entries.
func (s *server) maintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.cleanupOldVisitorData(ctx)
		s.limiter.Cleanup(time.Now())
		s.logins.Cleanup(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "disabled"}
	if err := s.store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if s.redis != nil {
		checks["redis"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}
	c.JSON(status, checks)
}

func themeFromCookie(c *gin.Context) string {
	if theme, err := c.Cookie("theme"); err == nil && theme == "light" {
		return "light"
	}
	return "dark"
}

func toggleTheme(c *gin.Context) {
	next := "light"
	if themeFromCookie(c) == "light" {
		next = "dark"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("theme", next, 3600*24*365, "/", "", false, false)

	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Refresh", "true")
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
