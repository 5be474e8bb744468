// Package tarball assembles npm-compatible tarballs for package versions.
// The archive carries a synthesized package.json followed by every declared
// file under the package/ prefix, and the output is byte-for-byte
// reproducible for identical input.
package tarball

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/ids"
)

// Tarball is a packed archive plus the integrity metadata npm clients
// expect: the hex shasum and the base64 sha-512 digest of the gzipped
// bytes.
type Tarball struct {
	Data   []byte
	SHA1   string
	SHA512 string
	Size   int64
}

// Options describe one packing run.
type Options struct {
	// RegistryURL is the public base URL of the registry, used for the
	// manifest homepage.
	RegistryURL string

	// Member is the package version being packed. Its export map becomes
	// the manifest exports field.
	Member *ids.Member

	// Files supplies the contents of every declared path.
	Files FileProvider

	// Dependencies is the validated external dependency list. When two
	// entries share a manifest name the first one wins.
	Dependencies []deps.Dependency
}

// Packer turns a package version into an npm-compatible tarball.
type Packer interface {
	Pack(ctx context.Context, opts Options) (*Tarball, error)
}

// NpmPacker is the default Packer. Entries are written with fixed
// metadata and in sorted path order, so packing the same version twice
// yields identical bytes. A declared /package.json is replaced by the
// synthesized manifest.
type NpmPacker struct{}

var _ Packer = NpmPacker{}

const manifestPath = "/package.json"

// Pack implements Packer.
func (NpmPacker) Pack(ctx context.Context, opts Options) (*Tarball, error) {
	manifest, err := buildManifest(opts)
	if err != nil {
		return nil, fmt.Errorf("building manifest: %w", err)
	}

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := writeEntry(tw, manifestPath, manifest); err != nil {
		return nil, err
	}

	paths := opts.Files.Paths()
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		if path.Equal(manifestPath) {
			continue
		}

		content, err := opts.Files.Read(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if err := writeEntry(tw, path, content); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	data := buf.Bytes()
	shasum := sha1.Sum(data)
	integrity := sha512.Sum512(data)

	return &Tarball{
		Data:   data,
		SHA1:   hex.EncodeToString(shasum[:]),
		SHA512: base64.StdEncoding.EncodeToString(integrity[:]),
		Size:   int64(len(data)),
	}, nil
}

func writeEntry(tw *tar.Writer, path ids.PackagePath, content []byte) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "package" + path.String(),
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
