package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

func compile(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return tmpl, nil
}

func execute(name, text string, vars map[string]string) (string, error) {
	tmpl, err := compile(name, text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Render executes the system and user templates. Besides vars, templates see
// .questions (the numbered list) and .answer_instruction. Absent variables
// render empty, so {{if .birth_place}} works for optional ones.
func (p *Prompt) Render(vars map[string]string) (system, user string, err error) {
	if p == nil {
		return "", "", errors.New("prompt is required")
	}
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			return "", "", fmt.Errorf("required variable %q not provided", name)
		}
	}

	data := make(map[string]string, len(vars)+2)
	for k, v := range vars {
		data[k] = v
	}
	data["questions"] = NumberedQuestions(p.Config.Questions)
	data["answer_instruction"] = strings.TrimSpace(p.Config.AnswerInstruction)

	if system, err = execute(p.Config.Slug+".system", p.Config.SystemTemplate, data); err != nil {
		return "", "", err
	}
	if system == "" {
		return "", "", errors.New("system prompt is required")
	}
	if user, err = execute(p.Config.Slug+".user", p.Config.UserTemplate, data); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// NumberedQuestions renders "1. first\n2. second...".
func NumberedQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = strconv.Itoa(i+1) + ". " + strings.TrimSpace(q)
	}
	return strings.Join(lines, "\n")
}
