// Package prompt loads the guidance prompts: one Markdown file per language
// with YAML frontmatter. The frontmatter holds the metadata, the eight
// questions and the user template; the body is the system prompt.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionCount is the number of questions every guidance prompt asks.
const QuestionCount = 8

var frontmatterFence = []byte("---")

type Config struct {
	Slug        string    `yaml:"slug" json:"slug"`
	Name        string    `yaml:"name,omitempty" json:"name,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string    `yaml:"version,omitempty" json:"version,omitempty"`
	Updated     string    `yaml:"updated,omitempty" json:"updated,omitempty"`
	Language    string    `yaml:"language" json:"language"`
	Input       InputSpec `yaml:"input,omitempty" json:"input,omitempty"`

	// Templates use text/template syntax over a map of string variables.
	SystemTemplate string `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string `yaml:"user_template,omitempty" json:"user_template,omitempty"`

	// AnswerInstruction tells the model which language to answer in.
	AnswerInstruction string   `yaml:"answer_instruction,omitempty" json:"answer_instruction,omitempty"`
	Questions         []string `yaml:"questions" json:"questions"`

	ProviderHints map[string]any `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// Prompt is a validated prompt and where it came from (file name or path).
type Prompt struct {
	Config Config
	Source string
}

// Load parses and validates one prompt file.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir loads every *.md file in dir.
func LoadFromDir(dir string) ([]*Prompt, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- prompts dir comes from operator config
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		p, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// parse splits "---\n<yaml>\n---\n<body>". A file without a leading fence
// is treated as YAML only.
func parse(data []byte) (Config, error) {
	var cfg Config
	data = bytes.TrimSpace(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	if len(data) == 0 {
		return cfg, errors.New("empty prompt")
	}

	front, body := data, []byte(nil)
	if rest, ok := bytes.CutPrefix(data, frontmatterFence); ok {
		var found bool
		front, body, found = bytes.Cut(rest, append([]byte("\n"), frontmatterFence...))
		if !found {
			return cfg, errors.New("unterminated frontmatter")
		}
	}
	if err := yaml.Unmarshal(front, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(string(body))
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Slug) == "":
		return errors.New("slug is required")
	case strings.TrimSpace(c.Language) == "":
		return errors.New("language is required")
	case strings.TrimSpace(c.SystemTemplate) == "":
		return errors.New("system_template is required")
	case strings.TrimSpace(c.UserTemplate) == "":
		return errors.New("user_template is required")
	case len(c.Questions) != QuestionCount:
		return fmt.Errorf("expected %d questions, got %d", QuestionCount, len(c.Questions))
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("question %d is empty", i+1)
		}
	}
	if _, err := compile(c.Slug+".system", c.SystemTemplate); err != nil {
		return err
	}
	_, err := compile(c.Slug+".user", c.UserTemplate)
	return err
}
