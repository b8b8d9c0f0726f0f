package main

import (
	"net/http"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger()
	defer logger.Sync()

	content, err := loadContent(cfg.ContentPath)
	if err != nil {
		logger.Fatal("load content", zap.Error(err))
	}

	store, err := openMetricsStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("open metrics store", zap.Error(err))
	}
	defer store.Close()
	go store.cleanupOldVisitors()

	bridge, err := newVizBridge(content, logger)
	if err != nil {
		logger.Fatal("init visibility bridge", zap.Error(err))
	}
	defer bridge.Close()

	relay := newContactRelay(cfg.ContactEndpoint, nil, logger)
	stats := newStatsClient(cfg.GitHubUser, logger)

	r := setupRouter(cfg, content, bridge, relay, stats, store)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	if gin.Mode() == gin.DebugMode {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func setupRouter(cfg Config, content *SiteContent, bridge *vizBridge, relay *contactRelay, stats *statsClient, store *metricsStore) *gin.Engine {
	r := gin.Default()
	r.LoadHTMLGlob("templates/*")

	r.Static("/images", "./images")
	r.Static("/static", "./static")

	r.Use(store.trackingMiddleware())

	// Page shell. Everything below the fold arrives as HTMX fragments.
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"theme":    themeFrom(c),
			"content":  content,
			"sections": sectionIDs,
		})
	})

	// HTMX fragment endpoints.
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})
	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "positions.html", gin.H{
			"heading":   "Work Experience",
			"positions": content.Experience,
		})
	})
	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "positions.html", gin.H{
			"heading":   "Education",
			"positions": content.Education,
		})
	})
	r.GET("/github-stats", stats.handleStats)

	// Form and preference endpoints.
	r.POST("/contact", relay.handleContact)
	r.POST("/theme", handleTheme)

	// Visibility bridge: the page posts IntersectionObserver batches in,
	// and polls nav/reveal state back out.
	r.POST("/viz/events", bridge.handleEvents)
	r.GET("/viz/nav", bridge.handleNav)
	r.GET("/viz/reveals", bridge.handleReveals)

	store.setupAdminRoutes(r, cfg)

	return r
}
