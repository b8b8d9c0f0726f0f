package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const themeCookie = "theme"

// themeFrom reads the visitor's stored theme preference. Dark is the
// default because the page shell ships dark.
func themeFrom(c *gin.Context) string {
	theme, err := c.Cookie(themeCookie)
	if err != nil || (theme != "light" && theme != "dark") {
		return "dark"
	}
	return theme
}

// handleTheme backs POST /theme, called by the toggle button.
func handleTheme(c *gin.Context) {
	theme := c.PostForm("theme")
	if theme != "light" && theme != "dark" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light or dark"})
		return
	}

	// One year; the preference is cosmetic, not sensitive.
	c.SetCookie(themeCookie, theme, 3600*24*365, "/", "", false, false)
	c.Status(http.StatusNoContent)
}
