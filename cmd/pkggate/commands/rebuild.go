package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pkggate/pkggate/internal/config"
	"github.com/pkggate/pkggate/internal/manifest"
	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/source"
)

var (
	// ErrNoOutput is returned when the --output flag is not set.
	ErrNoOutput = errors.New("output path is required (use --output)")

	// ErrNoFiles is returned when the version meta declares no files.
	ErrNoFiles = errors.New("version meta declares no files")

	// ErrUnknownRegistry indicates a dependency kind outside jsr and npm.
	ErrUnknownRegistry = errors.New("unknown dependency registry")

	// ErrNoStorage is returned when object storage is not configured.
	ErrNoStorage = errors.New("object storage is not configured (set storage.endpoint)")
)

// RebuildCommand holds the flags for the rebuild command.
type RebuildCommand struct {
	configPath  string
	output      string
	registryURL string
	storePrefix string
	noColor     bool
}

// NewRebuildCommand creates and configures the rebuild command.
func NewRebuildCommand() *cobra.Command {
	cmd := &RebuildCommand{}

	cobraCmd := &cobra.Command{
		Use:   "rebuild <meta.json>",
		Short: "Reassemble the npm tarball of a published version",
		Long: `Reassemble the npm tarball of a published version from object storage.

The meta file is the stored version record: the manifest fields plus the
declared file list and the dependency list recorded at publish time.`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.configPath, "config", "", "Config file path (default: .pkggate.yaml)")
	cobraCmd.Flags().StringVarP(&cmd.output, "output", "o", "", "Tarball output path (required)")
	cobraCmd.Flags().StringVar(&cmd.registryURL, "registry-url", "", "Registry base URL override")
	cobraCmd.Flags().StringVar(&cmd.storePrefix, "store-prefix", "", "Object key prefix of the version (default: @scope/name/version)")
	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false, "Disable colored output")

	return cobraCmd
}

// Run executes the rebuild command.
func (c *RebuildCommand) Run(cmd *cobra.Command, args []string) error {
	if c.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	if c.output == "" {
		return ErrNoOutput
	}

	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	if c.registryURL != "" {
		cfg.Registry.URL = c.registryURL
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read version meta: %w", err)
	}

	meta, err := parseRebuildMeta(data)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
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

	tb, err := run.RebuildTarball(cmd.Context(), analysis.RebuildRequest{
		RegistryURL:  cfg.Registry.URL,
		Member:       meta.Member,
		Paths:        meta.Paths,
		Store:        store,
		StorePrefix:  c.storePrefix,
		CacheSize:    cfg.Pipeline.BlobCacheSize,
		Dependencies: meta.Dependencies,
	})
	if err != nil {
		if e, ok := diag.As(err); ok {
			printRejection(cmd.ErrOrStderr(), e)

			return fmt.Errorf("%w (%s)", ErrRejected, e.Kind)
		}

		return err
	}

	err = os.WriteFile(c.output, tb.Data, tarballFilePerm)
	if err != nil {
		return fmt.Errorf("write tarball: %w", err)
	}

	writer := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintf(writer, "wrote %s (%d bytes)\n", c.output, tb.Size)
	fmt.Fprintf(writer, "  sha1: %s\n", tb.SHA1)
	fmt.Fprintf(writer, "  sha512: %s\n", tb.SHA512)

	return nil
}

// rebuildMeta is the parsed stored version record.
type rebuildMeta struct {
	Member       *ids.Member
	Paths        *ids.PathSet
	Dependencies []deps.Dependency
}

// parseRebuildMeta reads a version record: the manifest fields plus the
// declared file list and publish-time dependency list.
func parseRebuildMeta(data []byte) (*rebuildMeta, error) {
	member, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}

	var extra struct {
		Files        []string          `json:"files"`
		Dependencies []deps.Dependency `json:"dependencies"`
	}

	err = json.Unmarshal(data, &extra)
	if err != nil {
		return nil, fmt.Errorf("parse version meta: %w", err)
	}

	if len(extra.Files) == 0 {
		return nil, ErrNoFiles
	}

	paths := ids.NewPathSet()

	for _, raw := range extra.Files {
		p, pathErr := ids.NewPackagePath(raw)
		if pathErr != nil {
			return nil, pathErr
		}

		if addErr := paths.Add(p); addErr != nil {
			return nil, addErr
		}
	}

	for _, d := range extra.Dependencies {
		if d.Registry != deps.RegistryJSR && d.Registry != deps.RegistryNpm {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegistry, d.Registry)
		}
	}

	return &rebuildMeta{Member: member, Paths: paths, Dependencies: extra.Dependencies}, nil
}

// openStore connects the configured S3-compatible object store.
func openStore(cfg *config.Config) (source.ObjectStore, error) {
	if cfg.Storage.Endpoint == "" {
		return nil, ErrNoStorage
	}

	store, err := source.NewMinioStore(source.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	return store, nil
}
