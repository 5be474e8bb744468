// Package commands implements CLI command handlers for pkggate.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pkggate/pkggate/internal/config"
	"github.com/pkggate/pkggate/internal/manifest"
	"github.com/pkggate/pkggate/internal/observability"
	"github.com/pkggate/pkggate/internal/runner"
	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/version"
)

// tarballFilePerm is the mode for written tarball artifacts.
const tarballFilePerm = 0o644

// ErrRejected is returned when the package version fails the publish gate.
// The rejection detail is printed before the command returns it.
var ErrRejected = errors.New("package version rejected")

// skippedDirs are directory names excluded from package file collection.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// AnalyzeCommand holds the flags for the analyze command.
type AnalyzeCommand struct {
	configPath  string
	format      string
	output      string
	registryURL string
	tarballPath string
	noColor     bool
}

// NewAnalyzeCommand creates and configures the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd := &AnalyzeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Run the publish pipeline on a package directory",
		Long:  "Run the publish pipeline on a package directory containing " + manifest.Filename,
		Args:  cobra.MaximumNArgs(1),
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.configPath, "config", "", "Config file path (default: .pkggate.yaml)")
	cobraCmd.Flags().StringVarP(&cmd.format, "format", "f", FormatText, "Output format: text, json, or yaml")
	cobraCmd.Flags().StringVarP(&cmd.output, "output", "o", "", "Output file (default: stdout)")
	cobraCmd.Flags().StringVar(&cmd.registryURL, "registry-url", "", "Registry base URL override")
	cobraCmd.Flags().StringVar(&cmd.tarballPath, "tarball", "", "Write the packed npm tarball to this path")
	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false, "Disable colored output")

	return cobraCmd
}

// Run executes the analyze command.
func (c *AnalyzeCommand) Run(cmd *cobra.Command, args []string) error {
	if c.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	err := checkFormat(c.format)
	if err != nil {
		return err
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	if c.registryURL != "" {
		cfg.Registry.URL = c.registryURL
	}

	member, err := manifest.Load(filepath.Join(dir, manifest.Filename))
	if err != nil {
		return err
	}

	files, err := collectFiles(dir)
	if err != nil {
		return err
	}

	providers, cleanup, err := setupTelemetry(cfg)
	if err != nil {
		return err
	}

	defer cleanup()

	run, err := newRunner(cfg, providers)
	if err != nil {
		return err
	}

	out, err := run.AnalyzePackage(cmd.Context(), analysis.Request{
		RegistryURL: cfg.Registry.URL,
		Member:      member,
		Files:       files,
	})
	if err != nil {
		if e, ok := diag.As(err); ok {
			printRejection(cmd.ErrOrStderr(), e)

			return fmt.Errorf("%w (%s)", ErrRejected, e.Kind)
		}

		return err
	}

	if c.tarballPath != "" {
		writeErr := os.WriteFile(c.tarballPath, out.Tarball.Data, tarballFilePerm)
		if writeErr != nil {
			return fmt.Errorf("write tarball: %w", writeErr)
		}
	}

	writer, closeWriter, err := c.openOutput(cmd)
	if err != nil {
		return err
	}

	defer closeWriter()

	return writeReport(writer, c.format, buildReport(member, out))
}

// openOutput returns the report writer: stdout, or the --output file.
func (c *AnalyzeCommand) openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if c.output == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	file, err := os.Create(c.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}

	return file, func() { _ = file.Close() }, nil
}

// collectFiles walks dir and builds the uploaded file set. Paths are
// stored package-relative with forward slashes. VCS and dependency
// directories are skipped.
func collectFiles(dir string) (*ids.FileSet, error) {
	files := ids.NewFileSet()

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if path != dir && skippedDirs[entry.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		pkgPath, err := ids.NewPackagePath("/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		return files.Add(pkgPath, content)
	})
	if err != nil {
		return nil, fmt.Errorf("collect package files: %w", err)
	}

	return files, nil
}

// setupTelemetry initializes tracing, metrics, and logging from cfg, plus
// the diagnostics server when metrics serving is enabled. The returned
// cleanup flushes telemetry and stops the server.
func setupTelemetry(cfg *config.Config) (observability.Providers, func(), error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Providers{}, nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSONLogs()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init telemetry: %w", err)
	}

	closeServer := func() {}

	if cfg.Metrics.Enabled {
		server, serverErr := observability.NewDiagnosticsServer(cfg.Metrics.Addr, providers.Metrics)
		if serverErr != nil {
			_ = providers.Shutdown(context.Background())

			return observability.Providers{}, nil, fmt.Errorf("start diagnostics server: %w", serverErr)
		}

		providers.Logger.Info("diagnostics listening", "addr", server.Addr())

		closeServer = func() { _ = server.Close() }
	}

	cleanup := func() {
		closeServer()

		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown incomplete", "error", shutdownErr)
		}
	}

	return providers, cleanup, nil
}

// newRunner builds the run executor from config and telemetry providers.
func newRunner(cfg *config.Config, providers observability.Providers) (*runner.Runner, error) {
	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create run metrics: %w", err)
	}

	return &runner.Runner{
		Workers: cfg.Pipeline.Workers,
		MaxRuns: cfg.Pipeline.Runs,
		Tracer:  providers.Tracer,
		Metrics: metrics,
		Logger:  providers.Logger,
	}, nil
}

// printRejection renders a publish rejection with its anchor, if any.
func printRejection(writer io.Writer, e *diag.Error) {
	color.New(color.FgRed).Fprintf(writer, "publish rejected: %s\n", e.Kind)
	fmt.Fprintf(writer, "  %s\n", e.Detail)

	if e.Specifier != "" {
		fmt.Fprintf(writer, "  module: %s\n", e.Specifier)
	}

	if e.Pos != nil {
		fmt.Fprintf(writer, "  position: %d:%d\n", e.Pos.Line, e.Pos.Column)
	}
}
