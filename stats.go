package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const githubAPI = "https://api.github.com"

// profileStats are the counters shown in the hero section.
type profileStats struct {
	PublicRepos int `json:"public_repos"`
	Followers   int `json:"followers"`
	Following   int `json:"following"`
}

// statsClient reads a public GitHub profile. One GET, no auth, no retries:
// a failed read renders an error line instead of counters.
type statsClient struct {
	baseURL string
	user    string
	client  *http.Client
	logger  *zap.Logger
}

func newStatsClient(user string, logger *zap.Logger) *statsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statsClient{
		baseURL: githubAPI,
		user:    user,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (s *statsClient) fetch(ctx context.Context) (profileStats, error) {
	url := fmt.Sprintf("%s/users/%s", s.baseURL, s.user)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return profileStats{}, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return profileStats{}, fmt.Errorf("fetch profile stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return profileStats{}, fmt.Errorf("fetch profile stats: unexpected status %s", resp.Status)
	}

	var stats profileStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return profileStats{}, fmt.Errorf("decode profile stats: %w", err)
	}
	return stats, nil
}

// handleStats backs GET /github-stats, an HTMX fragment loaded after the
// page shell.
func (s *statsClient) handleStats(c *gin.Context) {
	stats, err := s.fetch(c.Request.Context())
	if err != nil {
		s.logger.Warn("github stats unavailable", zap.Error(err))
		c.HTML(http.StatusOK, "stats-error.html", gin.H{
			"error": "GitHub stats are unavailable right now.",
		})
		return
	}

	c.HTML(http.StatusOK, "stats.html", gin.H{
		"repos":     stats.PublicRepos,
		"followers": stats.Followers,
		"following": stats.Following,
		"user":      s.user,
	})
}
