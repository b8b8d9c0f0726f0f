package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactRouter(relay *contactRelay) *gin.Engine {
	r := gin.New()
	r.LoadHTMLGlob("templates/*")
	r.POST("/contact", relay.handleContact)
	return r
}

func submitContact(t *testing.T, r *gin.Engine, fields url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestContactRelaySuccess(t *testing.T) {
	var received url.Values
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	relay := newContactRelay(endpoint.URL, endpoint.Client(), nil)
	w := submitContact(t, contactRouter(relay), url.Values{
		"fullName": {"Jo Doe"},
		"email":    {"jo@example.com"},
		"message":  {"Hello there"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for your message")
	assert.Equal(t, "Jo Doe", received.Get("name"))
	assert.Equal(t, "jo@example.com", received.Get("email"))
	assert.Equal(t, "Hello there", received.Get("message"))
}

func TestContactRelayStripsMarkup(t *testing.T) {
	var received url.Values
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	relay := newContactRelay(endpoint.URL, endpoint.Client(), nil)
	submitContact(t, contactRouter(relay), url.Values{
		"fullName": {"Jo <script>alert(1)</script>Doe"},
		"email":    {"jo@example.com"},
		"message":  {"<b>bold</b> claim"},
	})

	assert.NotContains(t, received.Get("name"), "<script>")
	assert.Equal(t, "bold claim", received.Get("message"))
}

func TestContactRelayEndpointFailure(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer endpoint.Close()

	relay := newContactRelay(endpoint.URL, endpoint.Client(), nil)
	w := submitContact(t, contactRouter(relay), url.Values{
		"fullName": {"Jo"},
		"email":    {"jo@example.com"},
		"message":  {"hi"},
	})

	assert.Contains(t, w.Body.String(), "error sending your message")
}

func TestContactRejectsEmptyFields(t *testing.T) {
	relay := newContactRelay("http://unused.invalid", nil, nil)
	w := submitContact(t, contactRouter(relay), url.Values{
		"fullName": {"Jo"},
		"email":    {""},
		"message":  {"hi"},
	})

	assert.Contains(t, w.Body.String(), "Please fill in")
}

func TestContactRelayUnconfigured(t *testing.T) {
	relay := newContactRelay("", nil, nil)
	err := relay.send("a", "b@c.d", "e")
	assert.Error(t, err)
}
