package cli

import (
	"github.com/agentx-labs/webbundle/internal/build"
	"github.com/spf13/cobra"
)

var (
	validateOnly         []string
	validateNoExpansions bool
)

func init() {
	validateCmd.Flags().StringSliceVar(&validateOnly, "only", nil, "Validate only these agent or team ids (comma-separated)")
	validateCmd.Flags().BoolVar(&validateNoExpansions, "no-expansions", false, "Skip expansion packs")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every dependency reference without writing bundles",
	Long: `Resolve every agent and team and report missing dependencies, cycles,
and malformed definitions. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}

		report, err := build.New(a.fs, a.cfg).Run(cmd.Context(), build.RunOptions{
			Only:         validateOnly,
			NoExpansions: validateNoExpansions,
			Validate:     true,
		})
		if err != nil {
			return err
		}
		build.PrintReport(cmd.OutOrStdout(), report)
		if !report.OK() {
			return build.ErrBuildFailed
		}
		return nil
	},
}
