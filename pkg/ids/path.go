package ids

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPathInvalid is returned when a package path fails validation.
var ErrPathInvalid = errors.New("invalid package path")

// maxPathLen caps package paths well below common filesystem limits.
const maxPathLen = 260

// PackagePath is a validated package-relative file path. Paths always start
// with "/" and use forward slashes. Comparison and lookup are case
// insensitive so packages stay portable across case-insensitive filesystems.
type PackagePath string

// NewPackagePath validates raw and returns it as a PackagePath.
//
// Rules: the path must start with "/", stay within 260 bytes, contain no
// backslashes, no empty, "." or ".." segments, no percent escapes that
// decode to path syntax ("%2e", "%2f", "%5c" in any case), and only
// printable ASCII outside a small reserved set.
func NewPackagePath(raw string) (PackagePath, error) {
	if err := checkPackagePath(raw); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrPathInvalid, raw, err)
	}

	return PackagePath(raw), nil
}

// MustPackagePath is NewPackagePath that panics on error. Intended for
// tests.
func MustPackagePath(raw string) PackagePath {
	p, err := NewPackagePath(raw)
	if err != nil {
		panic(err)
	}

	return p
}

func checkPackagePath(raw string) error {
	if raw == "" {
		return errors.New("empty")
	}

	if !strings.HasPrefix(raw, "/") {
		return errors.New("must start with '/'")
	}

	if len(raw) > maxPathLen {
		return fmt.Errorf("longer than %d bytes", maxPathLen)
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c <= 0x1f || c == 0x7f {
			return errors.New("control character")
		}

		if c > 0x7e {
			return fmt.Errorf("non-ASCII byte 0x%02x", c)
		}

		switch c {
		case '\\':
			return errors.New("backslash separator")
		case '"', '*', ':', '<', '>', '?', '|':
			return fmt.Errorf("character %q not allowed", c)
		case '%':
			if i+2 < len(raw) && raw[i+1] == '2' {
				switch raw[i+2] {
				case 'e', 'E', 'f', 'F':
					return fmt.Errorf("ambiguous percent escape %q", raw[i:i+3])
				}
			}

			if i+2 < len(raw) && raw[i+1] == '5' && (raw[i+2] == 'c' || raw[i+2] == 'C') {
				return fmt.Errorf("ambiguous percent escape %q", raw[i:i+3])
			}
		}
	}

	for _, seg := range strings.Split(raw[1:], "/") {
		switch seg {
		case "":
			return errors.New("empty path segment")
		case ".", "..":
			return errors.New("relative path segment")
		}
	}

	return nil
}

func (p PackagePath) String() string { return string(p) }

// Fold returns the lowercase form used for case-insensitive map keys.
func (p PackagePath) Fold() string { return strings.ToLower(string(p)) }

// Equal reports case-insensitive path equality.
func (p PackagePath) Equal(other PackagePath) bool {
	return strings.EqualFold(string(p), string(other))
}

// Ext returns the lowercase file extension including the dot, or "" when
// the final segment has none.
func (p PackagePath) Ext() string {
	s := string(p)
	slash := strings.LastIndexByte(s, '/')
	dot := strings.LastIndexByte(s, '.')
	if dot <= slash {
		return ""
	}

	return strings.ToLower(s[dot:])
}

// readmeStems lists the root-level file stems recognized as a readme.
var readmeStems = map[string]bool{
	"readme":          true,
	"readme.md":       true,
	"readme.txt":      true,
	"readme.markdown": true,
}

// IsReadme reports whether the path names a root-level readme file,
// matched case-insensitively.
func (p PackagePath) IsReadme() bool {
	folded := p.Fold()
	if strings.Count(folded, "/") != 1 {
		return false
	}

	return readmeStems[folded[1:]]
}
