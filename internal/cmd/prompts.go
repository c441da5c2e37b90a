package cmd

import (
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kundliinsight/kundli/internal/ailink/prompt"
	errwrap "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/output"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect guidance prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the guidance prompts in effect",
	Long: `List the embedded guidance prompts merged with any overrides from
ailink.prompts_dir. Invalid override files fail the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
		}
		registry, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "failed to load prompts")
		}
		return writeListing(cmd, "prompts", promptListing(registry.List()))
	},
}

func promptListing(prompts []*prompt.Prompt) output.Listing {
	return output.Listing{
		Title:  "Prompts",
		Header: []string{"Slug", "Language", "Version", "Questions", "Source"},
		Rows: lo.Map(prompts, func(p *prompt.Prompt, _ int) []string {
			return []string{
				p.Config.Slug,
				p.Config.Language,
				lo.Ternary(p.Config.Version == "", "-", p.Config.Version),
				strconv.Itoa(len(p.Config.Questions)),
				p.Source,
			}
		}),
		Data: lo.Map(prompts, func(p *prompt.Prompt, _ int) prompt.Config {
			return p.Config
		}),
		Empty: "(no prompts)",
	}
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsListCmd)
	addListingFlags(promptsListCmd)
}
