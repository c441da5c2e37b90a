package engine

import (
	"fmt"
	"strconv"

	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	"github.com/kundliinsight/kundli/internal/core"
)

// PromptSlug returns the prompt used for readings in lang.
func PromptSlug(lang core.Language) (string, error) {
	switch lang {
	case core.LanguageHindi:
		return "guidance-hi", nil
	case core.LanguageEnglish:
		return "guidance-en", nil
	case core.LanguageMarathi:
		return "guidance-mr", nil
	default:
		return "", fmt.Errorf("no prompt for language %q", lang)
	}
}

// BuiltPrompt is the rendered instruction pair for one reading.
type BuiltPrompt struct {
	Prompt *prompt.Prompt
	System string
	User   string
}

// BuildPrompt renders the reading prompt for a validated request. The result
// depends only on req and the registry contents.
func BuildPrompt(reg prompt.Registry, req *core.GuidanceRequest) (*BuiltPrompt, error) {
	if reg == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	slug, err := PromptSlug(req.Language)
	if err != nil {
		return nil, err
	}
	def, err := reg.Get(slug)
	if err != nil {
		return nil, err
	}

	system, user, err := def.Render(promptVars(req))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", slug, err)
	}
	return &BuiltPrompt{Prompt: def, System: system, User: user}, nil
}

func promptVars(req *core.GuidanceRequest) map[string]string {
	vars := map[string]string{
		"name":        req.Name,
		"birth_date":  req.BirthDate,
		"birth_time":  req.BirthTime,
		"birth_place": req.BirthPlace,
		"timezone":    strconv.FormatFloat(req.Timezone, 'f', -1, 64),
		"language":    string(req.Language),
	}
	if req.Latitude != nil {
		vars["latitude"] = strconv.FormatFloat(*req.Latitude, 'f', -1, 64)
	}
	if req.Longitude != nil {
		vars["longitude"] = strconv.FormatFloat(*req.Longitude, 'f', -1, 64)
	}
	return vars
}
