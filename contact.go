package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// contactRelay forwards contact form submissions to a hosted form endpoint
// (e.g. Formspree). The site never stores messages and never talks SMTP;
// delivery is the endpoint's problem.
type contactRelay struct {
	endpoint string
	client   *http.Client
	policy   *bluemonday.Policy
	logger   *zap.Logger
}

func newContactRelay(endpoint string, client *http.Client, logger *zap.Logger) *contactRelay {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &contactRelay{
		endpoint: endpoint,
		client:   client,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,
	}
}

// send relays one submission. Any 2xx from the endpoint counts as success.
func (r *contactRelay) send(name, email, message string) error {
	if r.endpoint == "" {
		return fmt.Errorf("contact relay not configured")
	}

	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("message", message)

	resp, err := r.client.PostForm(r.endpoint, form)
	if err != nil {
		return fmt.Errorf("relay submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay submission: unexpected status %s", resp.Status)
	}
	return nil
}

// sanitize strips markup from a form field. User input goes straight into
// an email body on the far side of the relay.
func (r *contactRelay) sanitize(field string) string {
	return strings.TrimSpace(r.policy.Sanitize(field))
}

// handleContact backs POST /contact. HTMX swaps in the returned fragment.
func (r *contactRelay) handleContact(c *gin.Context) {
	name := r.sanitize(c.PostForm("fullName"))
	email := r.sanitize(c.PostForm("email"))
	message := r.sanitize(c.PostForm("message"))

	if name == "" || email == "" || message == "" {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, email and message.",
		})
		return
	}

	id := uuid.NewString()
	if err := r.send(name, email, message); err != nil {
		r.logger.Error("contact relay failed",
			zap.String("submission", id), zap.Error(err))
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	r.logger.Info("contact message relayed",
		zap.String("submission", id), zap.String("from", email))
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
