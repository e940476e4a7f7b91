package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/agentx-labs/webbundle/internal/build"
	"github.com/agentx-labs/webbundle/internal/bundle"
	"github.com/agentx-labs/webbundle/internal/manifest"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	checkManifest string
	checkBundle   string
	doctorVerbose bool
)

func init() {
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate one agent, team, or resource file")
	doctorCmd.Flags().StringVar(&checkBundle, "check-bundle", "", "Check that a built bundle file is well formed")
	doctorCmd.MarkFlagsMutuallyExclusive("check-manifest", "check-bundle")
	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "List every shadowed resource")
	rootCmd.AddCommand(doctorCmd)
}

var errDoctorFailed = errors.New("doctor found problems")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the project layout and expansion packs",
	Long: `Run diagnostic checks on the project: configuration, the core root,
every expansion pack's config.yaml and core compatibility, and which
resources each pack overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if checkManifest != "" {
			return runManifestCheck(out, a.fs, checkManifest)
		}
		if checkBundle != "" {
			return runBundleCheck(out, a.fs, checkBundle)
		}

		ok := true
		fmt.Fprintln(out, "Configuration:")
		if used := a.v.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "  [ OK ] %s\n", used)
		} else {
			fmt.Fprintln(out, "  [INFO] No config file, using defaults")
		}

		fmt.Fprintln(out, "Core:")
		b := build.New(a.fs, a.cfg)
		core, err := b.LoadScope(cmd.Context(), nil)
		if err != nil {
			fmt.Fprintf(out, "  [FAIL] %v\n", err)
			return errDoctorFailed
		}
		fmt.Fprintf(out, "  [ OK ] %s: %d agents, %d teams, %d resources\n",
			a.cfg.CorePath(),
			len(core.Snapshot.Entries(registry.CategoryAgent, "")),
			len(core.Snapshot.Entries(registry.CategoryTeam, "")),
			core.Snapshot.Len())

		fmt.Fprintln(out, "Expansion packs:")
		packs, err := b.Packs()
		if err != nil {
			fmt.Fprintf(out, "  [FAIL] %v\n", err)
			return errDoctorFailed
		}
		if len(packs) == 0 {
			fmt.Fprintln(out, "  [INFO] No expansion packs")
		}
		for i := range packs {
			p := &packs[i]
			scope, err := b.LoadScope(cmd.Context(), p)
			if err != nil {
				fmt.Fprintf(out, "  [FAIL] %s: %v\n", p.ID, err)
				ok = false
				continue
			}
			if err := scope.Err(); err != nil {
				fmt.Fprintf(out, "  [FAIL] %s: %v\n", p.ID, err)
				ok = false
				continue
			}
			shadows := scope.Snapshot.Shadowed()
			fmt.Fprintf(out, "  [ OK ] %s: overrides %d core resources\n", p.ID, len(shadows))
			if doctorVerbose {
				for _, s := range shadows {
					fmt.Fprintf(out, "         %s (%s over %s)\n", s.ID, s.Winner, s.Hidden)
				}
			}
		}

		if !ok {
			return errDoctorFailed
		}
		return nil
	},
}

// runManifestCheck parses one file the way a build would. The category is
// taken from the directory holding the file.
func runManifestCheck(out io.Writer, fsys afero.Fs, path string) error {
	fmt.Fprintf(out, "Manifest validation: %s\n", path)

	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return errDoctorFailed
	}

	dir := filepath.Base(filepath.Dir(path))
	cat, ok := registry.CategoryFromKey(dir)
	if dir == registry.CategoryTeam.Dir() {
		cat, ok = registry.CategoryTeam, true
	}
	if !ok {
		fmt.Fprintf(out, "  [FAIL] %s is not a category directory\n", dir)
		return errDoctorFailed
	}

	rec := &registry.Record{
		ID:      registry.NewID(cat, filepath.Base(path)),
		Content: content,
		RelPath: dir + "/" + filepath.Base(path),
	}

	var deps manifest.Manifest
	switch cat {
	case registry.CategoryAgent, registry.CategoryTeam:
		entry, perr := manifest.ParseEntry(rec)
		if perr == nil {
			deps = entry.Dependencies
		}
		err = perr
	default:
		deps, err = manifest.ParseResource(rec)
	}
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return errDoctorFailed
	}

	fmt.Fprintf(out, "  [ OK ] Valid %s, %d declared dependencies\n", cat, deps.Len())
	return nil
}

// runBundleCheck splits an artifact into its blocks and lists them.
func runBundleCheck(out io.Writer, fsys afero.Fs, path string) error {
	fmt.Fprintf(out, "Bundle check: %s\n", path)

	text, err := afero.ReadFile(fsys, path)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return errDoctorFailed
	}
	sections, err := bundle.Sections(text)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return errDoctorFailed
	}
	if len(sections) == 0 {
		fmt.Fprintln(out, "  [FAIL] no blocks found")
		return errDoctorFailed
	}

	fmt.Fprintf(out, "  [ OK ] %d blocks, entry %s\n", len(sections), sections[0].Location)
	if doctorVerbose {
		for _, sec := range sections[1:] {
			fmt.Fprintf(out, "         %s\n", sec.Location)
		}
	}
	return nil
}
