package ast

import "strings"

// MediaType classifies module content by file extension, following the
// ECMAScript toolchain taxonomy: plain and modern TypeScript/JavaScript
// variants, declaration files, and non-code assets.
type MediaType string

// Known media types.
const (
	MediaTypeScript MediaType = "TypeScript"
	MediaMts        MediaType = "Mts"
	MediaCts        MediaType = "Cts"
	MediaDts        MediaType = "Dts"
	MediaDmts       MediaType = "Dmts"
	MediaDcts       MediaType = "Dcts"
	MediaTsx        MediaType = "TSX"
	MediaJavaScript MediaType = "JavaScript"
	MediaMjs        MediaType = "Mjs"
	MediaCjs        MediaType = "Cjs"
	MediaJsx        MediaType = "JSX"
	MediaJSON       MediaType = "Json"
	MediaWasm       MediaType = "Wasm"
	MediaUnknown    MediaType = "Unknown"
)

// MediaTypeForPath derives the media type from a file path or URL path.
// Matching is case insensitive.
func MediaTypeForPath(path string) MediaType {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".d.ts"):
		return MediaDts
	case strings.HasSuffix(lower, ".d.mts"):
		return MediaDmts
	case strings.HasSuffix(lower, ".d.cts"):
		return MediaDcts
	case strings.HasSuffix(lower, ".ts"):
		return MediaTypeScript
	case strings.HasSuffix(lower, ".mts"):
		return MediaMts
	case strings.HasSuffix(lower, ".cts"):
		return MediaCts
	case strings.HasSuffix(lower, ".tsx"):
		return MediaTsx
	case strings.HasSuffix(lower, ".js"):
		return MediaJavaScript
	case strings.HasSuffix(lower, ".mjs"):
		return MediaMjs
	case strings.HasSuffix(lower, ".cjs"):
		return MediaCjs
	case strings.HasSuffix(lower, ".jsx"):
		return MediaJsx
	case strings.HasSuffix(lower, ".json"):
		return MediaJSON
	case strings.HasSuffix(lower, ".wasm"):
		return MediaWasm
	default:
		return MediaUnknown
	}
}

func (m MediaType) String() string { return string(m) }

// IsDeclaration reports whether the media type is a type declaration file.
func (m MediaType) IsDeclaration() bool {
	switch m {
	case MediaDts, MediaDmts, MediaDcts:
		return true
	default:
		return false
	}
}

// IsLegacyModule reports whether the media type forces the CommonJS module
// format. Declaration variants describe types only and are not legacy.
func (m MediaType) IsLegacyModule() bool {
	return m == MediaCjs || m == MediaCts
}

// IsTypeScript reports whether the content is TypeScript syntax, including
// declaration files.
func (m MediaType) IsTypeScript() bool {
	switch m {
	case MediaTypeScript, MediaMts, MediaCts, MediaDts, MediaDmts, MediaDcts, MediaTsx:
		return true
	default:
		return false
	}
}

// IsParseable reports whether the content can be parsed as an ECMAScript
// module at all.
func (m MediaType) IsParseable() bool {
	switch m {
	case MediaJSON, MediaWasm, MediaUnknown:
		return false
	default:
		return true
	}
}
