package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-eform"
	"github.com/alnah/go-eform/internal/assets"
	"github.com/alnah/go-eform/internal/config"
	"github.com/alnah/go-eform/internal/convert"
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

// app carries the state shared by all commands of one invocation.
type app struct {
	env    *Environment
	cfg    *config.Config
	logger *slog.Logger

	configPath string
	verbose    bool
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	a := &app{env: env}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, a.cfg, env.Getenv))
	return exitCodeFor(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "eform",
		Short: "Fill Word templates and render them to PDF",
		Long: `eform binds form data into .docx templates, renders them to PDF with
headless Chrome, and serves the template editing protocol of ONLYOFFICE.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config name or path (env EFORM_CONFIG)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddCommand(
		newServeCmd(a),
		newRenderCmd(a),
		newExtractCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newDoctorCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup builds the logger and, unless the command opts out, the
// configuration from file, environment and defaults.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.env.Stderr, &slog.HandlerOptions{Level: level}))

	// maxprocs.Set only fails on an invalid GOMAXPROCS, where runtime
	// defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		a.logger.Debug(fmt.Sprintf(format, args...))
	}))

	if cmd.Annotations[skipConfig] != "" {
		return nil
	}
	warnUnknownEnvVars(a.logger, a.env.Environ())

	env := loadEnvConfig(a.env.Getenv)
	path := a.configPath
	if path == "" {
		path = env.ConfigPath
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
		a.logger.Debug("config loaded", "path", path)
	}
	applyEnvConfig(env, cfg)
	a.cfg = cfg
	return nil
}

// generatorConfig maps the render settings onto the PDF pipeline.
func (a *app) generatorConfig(loader assets.Loader) eform.GeneratorConfig {
	r := a.cfg.Render
	return eform.GeneratorConfig{
		Assets:         loader,
		FontFamily:     r.FontFamily,
		FontSizePoints: r.FontSize,
		ImageRoot:      r.ImageRoot,
		ImageKeys:      r.ImageKeys,
		MaxImageWidth:  r.MaxImageWidth,
		TempDir:        a.cfg.Storage.TempDir,
		Browser: convert.BrowserConfig{
			Bin:       a.cfg.Browser.Bin,
			NoSandbox: a.cfg.Browser.NoSandbox,
			Timeout:   time.Duration(r.TimeoutSeconds) * time.Second,
		},
		Logger: a.logger,
	}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

func rangeArgs(minArgs, maxArgs int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(minArgs, maxArgs)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
