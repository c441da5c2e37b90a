package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed prompts/*.md
var embedded embed.FS

// Registry looks prompts up by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry is a Registry over a fixed map.
type InMemoryRegistry struct {
	bySlug map[string]*Prompt
}

// NewRegistry layers prompt sets: a slug in a later set replaces the same
// slug from an earlier one. A slug repeated within one set is an error.
func NewRegistry(sets ...[]*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{bySlug: map[string]*Prompt{}}
	for _, set := range sets {
		seen := map[string]bool{}
		for _, p := range set {
			if p == nil {
				continue
			}
			slug := strings.TrimSpace(p.Config.Slug)
			switch {
			case slug == "":
				return nil, fmt.Errorf("prompt %s missing slug", p.Source)
			case seen[slug]:
				return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
			}
			seen[slug] = true
			reg.bySlug[slug] = p
		}
	}
	return reg, nil
}

func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, errors.New("prompt registry not configured")
	}
	if slug = strings.TrimSpace(slug); slug == "" {
		return nil, errors.New("prompt slug is required")
	}
	if p, ok := r.bySlug[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found", slug)
}

// List returns prompts ordered by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	out := make([]*Prompt, 0, len(r.bySlug))
	for _, p := range r.bySlug {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Config.Slug < out[j].Config.Slug })
	return out
}

// LoadDefaults loads the prompts compiled into the binary.
func LoadDefaults() ([]*Prompt, error) {
	names, err := fs.Glob(embedded, "prompts/*.md")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := embedded.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", name, err)
		}
		p, err := Load(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func DefaultRegistry() (*InMemoryRegistry, error) {
	return RegistryWithOverrides("")
}

// RegistryWithOverrides is DefaultRegistry with any *.md files in dir
// replacing embedded prompts of the same slug.
func RegistryWithOverrides(dir string) (*InMemoryRegistry, error) {
	defaults, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if dir = strings.TrimSpace(dir); dir == "" {
		return NewRegistry(defaults)
	}
	overrides, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defaults, overrides)
}
