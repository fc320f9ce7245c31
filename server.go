package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/extraction"
	"bitbucket.org/ginoconcreto/estoque_backend/livesync"
	"bitbucket.org/ginoconcreto/estoque_backend/middlewares"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Liveness is always answered, even before the stores connect.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	hub := livesync.NewHub()
	notifier := livesync.NewNotifier()
	syncer := livesync.NewSynchronizer(models.NewFallbackState(), notifier, hub)

	extractor := newExtractor(sigCtx, logger)

	r.POST("/login", loginHandler())
	r.GET("/state", stateHandler(syncer))
	r.GET("/stock/:usina", stockHandler(syncer))
	r.GET("/history/:usina", historyHandler(syncer))
	r.GET("/estimates/:usina", estimatesHandler(syncer))
	r.POST("/stock/entry", entryHandler(hub, syncer))
	r.POST("/stock/overwrite", overwriteHandler(hub, syncer))
	r.POST("/stock/report", reportHandler(extractor, hub, syncer))
	r.GET("/reports/stock.xlsx", exportHandler())
	r.GET("/ws", hub.ServeWS)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rota não encontrada"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Route change events from writers into the notifier, then pull the
	// first full state and start the synchronizer.
	models.SetChangePublisher(notifier.Publish)
	initial := models.LoadAppState(sigCtx)
	syncer.ApplyView(models.RemoteView{
		Inventory: initial.Inventory,
		History:   initial.History,
	})
	if err := syncer.Start(sigCtx); err != nil {
		config.LogError(logger, "server", "main", "start synchronizer", nil, err)
	}
	defer syncer.Stop()

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("estoque backend listening on :", port)

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// newExtractor keeps the server usable without a Gemini key: report
// uploads fail with a clear error instead of the process refusing to boot.
func newExtractor(ctx context.Context, logger *logrus.Logger) extraction.ReportExtractor {
	extractor, err := extraction.NewGeminiExtractor(ctx)
	if err != nil {
		config.LogError(logger, "server", "newExtractor", "gemini init", nil, err)
		return nil
	}
	return extractor
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// customErrorLogger logs only requests that attached errors, tagged with
// the request's correlation id.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			fields := logrus.Fields{}
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				fields["correlationId"] = cid
			}
			logger.WithFields(fields).Error(c.Errors.String())
		}
	}
}
