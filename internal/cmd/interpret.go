package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kundliinsight/kundli/internal/core"
	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

// cliClient is the rate limit identity of readings requested from the CLI.
const cliClient = "cli"

var interpretCmd = &cobra.Command{
	Use:   "interpret",
	Short: "Generate a reading from birth details",
	Long: `Generate a single reading the same way POST /api/interpret does and print
the resulting HTML fragment (or the full response as JSON).

Birth details come from flags, or from a JSON request body with --input
(use "-" for stdin). Provider calls can be recorded with --trace.`,
	Example: `  kundli interpret --name Asha --birth-date 1990-04-12 --birth-time 06:30 --language en
  echo '{"name":"Asha","birthDate":"1990-04-12","birthTime":"06:30"}' | kundli interpret --input -`,
	RunE: runInterpret,
}

func runInterpret(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "html" && format != "json" {
		return errwrap.NewInvalidInputError("--format must be html or json")
	}

	raw, err := interpretPayload(cmd.Flags(), cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
	}
	guidance, err := buildGuidance(cfg, cliClient, observability.CLILogger)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to initialize guidance")
	}

	result := guidance.orchestrator.Interpret(ctx, raw, cliClient)

	outPath, _ := cmd.Flags().GetString("out")
	w, closeOut, err := openOutput(cmd, outPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	rendered, err := renderGuidance(result, format)
	if err != nil {
		return err
	}
	if rendered != "" {
		if _, err := fmt.Fprintln(w, rendered); err != nil {
			return err
		}
	}
	return guidanceError(result)
}

// interpretPayload builds the request body from --input or the detail flags.
// Coordinates are only sent when given so the server-side defaults apply.
func interpretPayload(flags *pflag.FlagSet, stdin io.Reader) ([]byte, error) {
	input, _ := flags.GetString("input")
	if input = strings.TrimSpace(input); input != "" {
		if input == "-" {
			return io.ReadAll(stdin)
		}
		return os.ReadFile(input) // #nosec G304 -- operator-chosen path
	}

	body := map[string]any{}
	for flag, field := range map[string]string{
		"name":        "name",
		"birth-date":  "birthDate",
		"birth-time":  "birthTime",
		"birth-place": "birthPlace",
		"language":    "language",
	} {
		if v, _ := flags.GetString(flag); strings.TrimSpace(v) != "" {
			body[field] = v
		}
	}
	for flag, field := range map[string]string{
		"latitude":  "latitude",
		"longitude": "longitude",
		"timezone":  "timezone",
	} {
		if flags.Changed(flag) {
			v, _ := flags.GetFloat64(flag)
			body[field] = v
		}
	}
	return json.Marshal(body)
}

func renderGuidance(result *core.GuidanceResult, format string) (string, error) {
	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if !result.OK {
		return "", nil
	}
	return result.HTML, nil
}

// guidanceError turns a failed result into a command error carrying the
// localized message.
func guidanceError(result *core.GuidanceResult) error {
	if result.OK {
		return nil
	}
	switch result.ErrorKind {
	case core.ErrorKindValidation:
		return errwrap.NewValidationError(result.ErrorMessage)
	case core.ErrorKindRateLimitExceeded:
		return errwrap.NewRateLimitedError(result.ErrorMessage)
	case core.ErrorKindConfiguration:
		return errwrap.NewConfigInvalidError(result.ErrorMessage)
	case core.ErrorKindGenerationFailure:
		return errwrap.NewExternalServiceError(result.ErrorMessage)
	default:
		return errwrap.NewInternalError(result.ErrorMessage)
	}
}

func init() {
	rootCmd.AddCommand(interpretCmd)
	addInterpretFlags(interpretCmd.Flags())
}

func addInterpretFlags(flags *pflag.FlagSet) {
	flags.String("name", "", "name of the person")
	flags.String("birth-date", "", "birth date, e.g. 1990-04-12")
	flags.String("birth-time", "", "birth time, e.g. 06:30")
	flags.String("birth-place", "", "birth place")
	flags.Float64("latitude", 0, "birth latitude (-90..90)")
	flags.Float64("longitude", 0, "birth longitude (-180..180)")
	flags.Float64("timezone", core.DefaultTimezone, "UTC offset in hours")
	flags.String("language", "", "answer language: hi, en or mr (default hi)")
	flags.String("input", "", "read the JSON request body from a file, or - for stdin")
	flags.String("format", "html", "output format: html or json")
	flags.String("out", "", "write output to a file (default stdout)")
}
