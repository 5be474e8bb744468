// Package diag defines the structured rejection model for publish analysis.
// Every way a package version can fail the gate maps to a Kind; the Error
// type carries the kind, the module it was found in, and an optional source
// position so callers can render precise findings.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a publish rejection.
type Kind string

// Rejection kinds, stable across API and CLI output.
const (
	// KindInvalidPath rejects export entries whose entrypoint is not a
	// valid package path.
	KindInvalidPath Kind = "invalid-path"

	// KindExportsInvalid rejects export entries referencing files absent
	// from the package.
	KindExportsInvalid Kind = "exports-invalid"

	// KindGraphError covers module graph construction failures: unresolvable
	// specifiers, parse failures, missing modules.
	KindGraphError Kind = "graph-error"

	// KindLegacyModuleFormat rejects CommonJS modules and syntax.
	KindLegacyModuleFormat Kind = "legacy-module-format"

	// KindGlobalTypeAugmentation rejects declarations that mutate the global
	// type scope.
	KindGlobalTypeAugmentation Kind = "global-type-augmentation"

	// KindLegacyImportAttribute rejects assert-style import attributes.
	KindLegacyImportAttribute Kind = "legacy-import-attribute"

	// KindBannedReferenceComment rejects lib and no-default-lib triple-slash
	// reference directives.
	KindBannedReferenceComment Kind = "banned-reference-comment"

	// KindMissingVersionConstraint rejects registry dependencies pinned to
	// the wildcard constraint.
	KindMissingVersionConstraint Kind = "missing-version-constraint"

	// KindInvalidDependencySpecifier rejects registry specifiers that fail
	// to parse.
	KindInvalidDependencySpecifier Kind = "invalid-dependency-specifier"

	// KindDisallowedExternalImport rejects imports from schemes outside the
	// allowed set.
	KindDisallowedExternalImport Kind = "disallowed-external-import"
)

// Position is a 1-based line and column in module source.
type Position struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
}

// Error is a single publish rejection. Specifier and Pos are optional;
// when present they anchor the finding to a module and source location.
type Error struct {
	Kind      Kind      `json:"kind"`
	Specifier string    `json:"specifier,omitempty"`
	Pos       *Position `json:"position,omitempty"`
	Detail    string    `json:"detail"`
	Err       error     `json:"-"`
}

// Errorf builds an Error with a formatted detail message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// At returns a copy of the error anchored to a module specifier.
func (e *Error) At(specifier string) *Error {
	out := *e
	out.Specifier = specifier

	return &out
}

// AtPos returns a copy anchored to a module specifier and source position.
func (e *Error) AtPos(specifier string, line, column uint32) *Error {
	out := *e
	out.Specifier = specifier
	out.Pos = &Position{Line: line, Column: column}

	return &out
}

// Wrap returns a copy carrying cause for errors.Is and errors.As chains.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause

	return &out
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Detail
	switch {
	case e.Specifier != "" && e.Pos != nil:
		return fmt.Sprintf("%s at %s:%d:%d", msg, e.Specifier, e.Pos.Line, e.Pos.Column)
	case e.Specifier != "":
		return msg + " in " + e.Specifier
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// As extracts a diag.Error from an error chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}

	return nil, false
}

// KindOf returns the rejection kind in err's chain, or "" when the chain
// holds no diag.Error.
func KindOf(err error) Kind {
	if de, ok := As(err); ok {
		return de.Kind
	}

	return ""
}
