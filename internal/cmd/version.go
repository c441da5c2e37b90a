package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/kundliinsight/kundli/internal/appid"
	"github.com/kundliinsight/kundli/internal/core"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, runtime and language details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, binaryName := appid.Names(GetAppIdentity())
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s %s\n", binaryName, versionInfo.Version)
		if !extended {
			return nil
		}

		fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "Go: %s\n", runtime.Version())
		languages := lo.Map(core.Languages(), func(l core.Language, _ int) string {
			return fmt.Sprintf("%s (%s)", l, l.DisplayName())
		})
		fmt.Fprintf(out, "Languages: %s\n", strings.Join(languages, ", "))
		fmt.Fprintln(out)

		version := crucible.GetVersion()
		fmt.Fprintf(out, "Gofulmen: %s\n", version.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", version.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
