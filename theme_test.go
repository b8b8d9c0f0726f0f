package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestThemeRoundtrip(t *testing.T) {
	r := gin.New()
	r.POST("/theme", handleTheme)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, themeFrom(c)) })

	form := url.Values{"theme": {"light"}}
	req := httptest.NewRequest(http.MethodPost, "/theme", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	assert.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "light", w.Body.String())
}

func TestThemeDefaultsToDark(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, themeFrom(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "dark", w.Body.String())
}

func TestThemeRejectsUnknownValue(t *testing.T) {
	r := gin.New()
	r.POST("/theme", handleTheme)

	form := url.Values{"theme": {"hotdog"}}
	req := httptest.NewRequest(http.MethodPost, "/theme", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
