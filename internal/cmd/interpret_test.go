package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/core"
	apperrors "github.com/kundliinsight/kundli/internal/errors"
)

func interpretFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("interpret", pflag.ContinueOnError)
	addInterpretFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func decodePayload(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestInterpretPayloadFromFlags(t *testing.T) {
	flags := interpretFlags(t,
		"--name", "Asha",
		"--birth-date", "1990-04-12",
		"--birth-time", "06:30",
		"--language", "en",
		"--latitude", "18.52",
	)

	raw, err := interpretPayload(flags, strings.NewReader(""))
	require.NoError(t, err)
	body := decodePayload(t, raw)

	assert.Equal(t, "Asha", body["name"])
	assert.Equal(t, "1990-04-12", body["birthDate"])
	assert.Equal(t, "en", body["language"])
	assert.InDelta(t, 18.52, body["latitude"], 1e-9)
	assert.NotContains(t, body, "longitude")
	assert.NotContains(t, body, "timezone")
	assert.NotContains(t, body, "birthPlace")

	req, verr := core.DecodeGuidanceRequest(raw)
	require.Nil(t, verr)
	assert.Equal(t, core.DefaultTimezone, req.Timezone)
}

func TestInterpretPayloadFromInput(t *testing.T) {
	body := `{"name":"Asha","birthDate":"1990-04-12","birthTime":"06:30"}`

	raw, err := interpretPayload(interpretFlags(t, "--input", "-"), strings.NewReader(body))
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))

	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	raw, err = interpretPayload(interpretFlags(t, "--input", path), nil)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))
}

func TestRenderGuidance(t *testing.T) {
	ok := core.Success("<p>A</p>", core.LanguageEnglish)

	html, err := renderGuidance(ok, "html")
	require.NoError(t, err)
	assert.Equal(t, "<p>A</p>", html)

	js, err := renderGuidance(ok, "json")
	require.NoError(t, err)
	assert.Contains(t, js, `"ok": true`)

	failed := core.Failure(core.ErrorKindValidation, core.LanguageEnglish)
	html, err = renderGuidance(failed, "html")
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestGuidanceError(t *testing.T) {
	assert.NoError(t, guidanceError(core.Success("<p>A</p>", core.LanguageHindi)))

	cases := map[core.ErrorKind]string{
		core.ErrorKindValidation:        apperrors.CodeValidation,
		core.ErrorKindRateLimitExceeded: apperrors.CodeRateLimited,
		core.ErrorKindConfiguration:     apperrors.CodeConfigInvalid,
		core.ErrorKindGenerationFailure: apperrors.CodeExternalService,
		core.ErrorKindUnexpected:        apperrors.CodeInternal,
	}
	for kind, code := range cases {
		result := core.Failure(kind, core.LanguageEnglish)
		err := guidanceError(result)
		require.Error(t, err, kind)

		var envelope *gferrors.ErrorEnvelope
		require.ErrorAs(t, err, &envelope)
		assert.Equal(t, code, envelope.Code, kind)
		assert.Equal(t, result.ErrorMessage, envelope.Message, kind)
	}
}
