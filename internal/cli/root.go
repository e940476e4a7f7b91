package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/agentx-labs/webbundle/internal/branding"
	"github.com/agentx-labs/webbundle/internal/build"
	"github.com/agentx-labs/webbundle/internal/config"
	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	configFile string
	rootDir    string
	logLevel   string
	logFormat  string
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"root":       "root",
	"log-level":  "log.level",
	"log-format": "log.format",
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` packages agents, teams, and every task, template, checklist,
and data file they depend on into single-file web bundles.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default <root>/"+branding.ConfigName()+".yaml)")
	pf.StringVar(&rootDir, "root", ".", "Project root containing the core and expansion pack trees (env "+branding.EnvVar("root")+")")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error (env "+branding.EnvVar("log_level")+")")
	pf.StringVar(&logFormat, "log-format", "text", "Log format: text or json (env "+branding.EnvVar("log_format")+")")
}

// app is the per-invocation state built by setup.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	fs  afero.Fs
}

type appKey struct{}

// setup loads configuration and installs the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	// Commands that never read the project.
	switch {
	case cmd.Name() == "version", cmd.Name() == "help":
		return nil
	case cmd.HasParent() && cmd.Parent().Name() == "completion":
		return nil
	}

	v := viper.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	ctx = ctxlog.WithLogger(ctx, logger)
	ctx = context.WithValue(ctx, appKey{}, &app{v: v, cfg: cfg, fs: afero.NewOsFs()})
	cmd.SetContext(ctx)

	logger.Debug("config loaded", "file", v.ConfigFileUsed(), "root", cfg.Root)
	return nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("command context not initialized")
	}
	return a, nil
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

// Run executes the command tree with args, writing to out and errOut. Flag
// values from a previous Run are reset first.
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd.ExecuteContext(ctx)
}

// IsBuildFailure reports whether err only signals failed targets, which
// the report has already described.
func IsBuildFailure(err error) bool {
	return errors.Is(err, build.ErrBuildFailed)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
