// Package portfolio holds the page content shown on the site.
package portfolio

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

type SkillCategory struct {
	Title string   `yaml:"title"`
	Items []string `yaml:"items"`
}

type Education struct {
	Degree      string `yaml:"degree"`
	Institution string `yaml:"institution"`
	Duration    string `yaml:"duration"`
}

type Experience struct {
	Company     string `yaml:"company"`
	Role        string `yaml:"role"`
	Duration    string `yaml:"duration"`
	Description string `yaml:"description"`
}

type Project struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
	Image       string `yaml:"image"`
}

type Content struct {
	Owner    string `yaml:"owner"`
	Headline string `yaml:"headline"`
	Tagline  string `yaml:"tagline"`
	About    string `yaml:"about"`
	CV       struct {
		Path     string `yaml:"path"`
		Filename string `yaml:"filename"`
	} `yaml:"cv"`
	Photo      string          `yaml:"photo"`
	Nav        []Link          `yaml:"nav"`
	Skills     []SkillCategory `yaml:"skills"`
	Education  []Education     `yaml:"education"`
	Experience []Experience    `yaml:"experience"`
	Projects   []Project       `yaml:"projects"`
	Social     []Link          `yaml:"social"`
	Footer     string          `yaml:"footer"`
}

// Load returns the embedded content, or the file at path when path is set.
func Load(path string) (*Content, error) {
	data := defaultContent
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content file %s: %w", path, err)
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if c.Owner == "" {
		return nil, errors.New("content: owner is required")
	}
	if len(c.Skills)+len(c.Education)+len(c.Experience)+len(c.Projects) == 0 {
		return nil, errors.New("content: at least one section is required")
	}
	return &c, nil
}
