package main

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// VisitorMetric is one tracked page view. IPs are hashed with a per-boot
// salt before they ever touch disk.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type PathStat struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TopPaths         []PathStat      `json:"top_paths"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// metricsStore owns the visitors table and the admin session token.
type metricsStore struct {
	db         *sql.DB
	adminToken string
	salt       string
	logger     *zap.Logger
}

func openMetricsStore(path string, logger *zap.Logger) (*metricsStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create visitors table: %w", err)
	}

	m := &metricsStore{
		db:         db,
		adminToken: randomToken(),
		salt:       randomToken(),
		logger:     logger,
	}

	logger.Info("visitor tracking enabled with hashed IP addresses")
	if gin.Mode() == gin.DebugMode {
		logger.Info("admin token (dev only)", zap.String("token", m.adminToken))
	}
	return m, nil
}

func (m *metricsStore) Close() error {
	return m.db.Close()
}

func randomToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("generate token: %v", err))
	}
	return hex.EncodeToString(bytes)
}

// hashIP keeps per-visitor uniqueness without storing addresses. Consistent
// per IP for the life of the salt, truncated for storage.
func (m *metricsStore) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + m.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

// trackingMiddleware records page views. Static assets, admin pages, the
// visibility event firehose, and anyone sending DNT are skipped.
func (m *metricsStore) trackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/images/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/viz/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") {
			c.Next()
			return
		}

		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		go m.trackVisitor(c.ClientIP(), c.GetHeader("User-Agent"), path)
		c.Next()
	}
}

func (m *metricsStore) trackVisitor(ip, userAgent, path string) {
	_, err := m.db.Exec(`
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, m.hashIP(ip), userAgent, path, time.Now())
	if err != nil {
		m.logger.Error("record visitor", zap.Error(err))
	}
}

// cleanupOldVisitors drops records older than 12 months.
func (m *metricsStore) cleanupOldVisitors() {
	result, err := m.db.Exec(`
		DELETE FROM visitors
		WHERE timestamp < datetime('now', '-12 months')
	`)
	if err != nil {
		m.logger.Error("privacy cleanup", zap.Error(err))
		return
	}

	if deleted, _ := result.RowsAffected(); deleted > 0 {
		m.logger.Info("privacy cleanup removed old visitor records",
			zap.Int64("deleted", deleted))
	}
}

func (m *metricsStore) adminStats() (*AdminStats, error) {
	stats := &AdminStats{}

	if err := m.db.QueryRow("SELECT COUNT(*) FROM visitors").Scan(&stats.TotalVisitors); err != nil {
		return nil, err
	}
	if err := m.db.QueryRow("SELECT COUNT(DISTINCT hashed_ip) FROM visitors").Scan(&stats.UniqueVisitors); err != nil {
		return nil, err
	}
	if err := m.db.QueryRow(`
		SELECT COUNT(*) FROM visitors
		WHERE DATE(timestamp) = DATE('now')
	`).Scan(&stats.VisitorsToday); err != nil {
		return nil, err
	}
	if err := m.db.QueryRow(`
		SELECT COUNT(*) FROM visitors
		WHERE timestamp >= datetime('now', '-7 days')
	`).Scan(&stats.VisitorsThisWeek); err != nil {
		return nil, err
	}

	rows, err := m.db.Query(`
		SELECT path, COUNT(*) as views
		FROM visitors
		GROUP BY path
		ORDER BY views DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			continue
		}
		stats.TopPaths = append(stats.TopPaths, p)
	}

	rows, err = m.db.Query(`
		SELECT id, hashed_ip, user_agent, path, timestamp
		FROM visitors
		ORDER BY timestamp DESC
		LIMIT 50
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			continue
		}
		stats.RecentVisitors = append(stats.RecentVisitors, v)
	}

	return stats, nil
}

func (m *metricsStore) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(m.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupAdminRoutes wires the privacy page, admin login and the dashboard.
func (m *metricsStore) setupAdminRoutes(r *gin.Engine, cfg Config) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{"title": "Privacy Policy"})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		adminUsername := cfg.AdminUsername
		adminPassword := cfg.AdminPassword
		if adminUsername == "" || adminPassword == "" {
			m.logger.Warn("admin login attempted but credentials are not configured")
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Admin access is not configured",
			})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(adminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(adminPassword)) == 1
		if userOK && passOK {
			c.SetCookie("admin_token", m.adminToken, 3600*24, "/admin", "", false, true)
			m.logger.Info("admin login", zap.String("from", m.hashIP(c.ClientIP())))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		m.logger.Warn("failed admin login", zap.String("from", m.hashIP(c.ClientIP())))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(m.authMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := m.adminStats()
		if err != nil {
			m.logger.Error("load admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{"stats": stats})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := m.adminStats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		go m.cleanupOldVisitors()
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})
}
