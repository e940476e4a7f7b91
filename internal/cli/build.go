package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/agentx-labs/webbundle/internal/build"
	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/agentx-labs/webbundle/internal/watch"
	"github.com/spf13/cobra"
)

var (
	buildAgentsOnly   bool
	buildTeamsOnly    bool
	buildNoExpansions bool
	buildOnly         []string
	buildOut          string
	buildNoClean      bool
	buildWatch        bool
)

func init() {
	f := buildCmd.Flags()
	f.BoolVar(&buildAgentsOnly, "agents-only", false, "Build agent bundles only")
	f.BoolVar(&buildTeamsOnly, "teams-only", false, "Build team bundles only")
	f.BoolVar(&buildNoExpansions, "no-expansions", false, "Skip expansion packs")
	f.StringSliceVar(&buildOnly, "only", nil, "Build only these agent or team ids (comma-separated)")
	f.StringVar(&buildOut, "out", "", "Output directory (overrides output.path)")
	f.BoolVar(&buildNoClean, "no-clean", false, "Keep existing files in the output directory")
	f.BoolVar(&buildWatch, "watch", false, "Rebuild when the core or pack trees change")
	buildCmd.MarkFlagsMutuallyExclusive("agents-only", "teams-only")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build web bundles for every agent and team",
	Long: `Resolve every agent and team (core and expansion packs), serialize each
into a single text bundle, and write it to the output directory.

Exits with status 1 when any target fails; the other targets are still built.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if buildOut != "" {
		a.cfg.Output.Path = buildOut
	}

	b := build.New(a.fs, a.cfg)
	opts := build.RunOptions{
		AgentsOnly:   buildAgentsOnly,
		TeamsOnly:    buildTeamsOnly,
		NoExpansions: buildNoExpansions,
		Only:         buildOnly,
		Clean:        !buildNoClean,
	}

	once := func(ctx context.Context) error {
		report, err := b.Run(ctx, opts)
		if err != nil {
			return err
		}
		build.PrintReport(cmd.OutOrStdout(), report)
		if !report.OK() {
			return build.ErrBuildFailed
		}
		return nil
	}

	if !buildWatch {
		return once(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	logger := ctxlog.FromContext(ctx)

	if err := once(ctx); err != nil && !IsBuildFailure(err) {
		return err
	}
	roots := []string{a.cfg.CorePath(), a.cfg.PacksPath()}
	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes (Ctrl-C to stop)\n", a.cfg.Root)
	return watch.Run(ctx, roots, 0, func(ctx context.Context) error {
		logger.Info("change detected, rebuilding")
		if err := once(ctx); err != nil && !IsBuildFailure(err) {
			return err
		}
		return nil
	})
}
