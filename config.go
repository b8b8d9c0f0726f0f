package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the site reads from the environment. A local
// .env file is loaded by the godotenv autoload import in main.go before
// parsing happens.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	ContentPath string `env:"CONTENT_PATH" envDefault:"content.yaml"`
	DBPath      string `env:"DB_PATH" envDefault:"portfolio.db"`

	// GitHubUser is the public profile whose repo/follower counters are
	// shown on the page.
	GitHubUser string `env:"GITHUB_USER" envDefault:"arameau"`

	// ContactEndpoint is the hosted form relay (e.g. a Formspree URL).
	// Empty disables the contact form handler.
	ContactEndpoint string `env:"CONTACT_ENDPOINT"`

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
