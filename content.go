package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SiteContent is everything the page renders: copy, skills, projects,
// experience, education. It lives in content.yaml so copy edits never
// touch Go code.
type SiteContent struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	About   string `yaml:"about"`

	Skills     []Skill    `yaml:"skills"`
	Projects   []Project  `yaml:"projects"`
	Experience []Position `yaml:"experience"`
	Education  []Position `yaml:"education"`

	Social map[string]string `yaml:"social"`
}

// Skill is one animated skill bar. Level is a percentage.
type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Link        string   `yaml:"link"`
	Tags        []string `yaml:"tags"`
}

// Position covers both jobs and schooling; the template decides the label.
type Position struct {
	Title        string   `yaml:"title"`
	Organization string   `yaml:"organization"`
	StartDate    string   `yaml:"start_date"`
	EndDate      string   `yaml:"end_date"`
	LogoPath     string   `yaml:"logo_path"`
	BulletPoints []string `yaml:"bullet_points"`
}

// sectionIDs lists the top-level page sections in display order. The nav
// highlighting group watches exactly these.
var sectionIDs = []string{"home", "about", "skills", "projects", "experience", "contact"}

func loadContent(path string) (*SiteContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	var c SiteContent
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	if c.Name == "" {
		return nil, fmt.Errorf("content %s: name is required", path)
	}
	for i, s := range c.Skills {
		if s.Level < 0 || s.Level > 100 {
			return nil, fmt.Errorf("content %s: skill %q level %d out of range", path, c.Skills[i].Name, s.Level)
		}
	}
	return &c, nil
}

// revealTargets returns every element id the reveal engine should latch:
// one per section plus one per skill bar.
func (c *SiteContent) revealTargets() []string {
	targets := make([]string, 0, len(sectionIDs)+len(c.Skills))
	targets = append(targets, sectionIDs...)
	for i := range c.Skills {
		targets = append(targets, fmt.Sprintf("skill-%d", i))
	}
	return targets
}
