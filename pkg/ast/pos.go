package ast

import (
	"sort"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) in module source.
type Span struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// SourceText wraps module source and answers offset to line and column
// queries. Line and column are 1-based display positions; columns count
// characters, not bytes.
type SourceText struct {
	src        string
	lineStarts []uint32
}

// NewSourceText indexes src for position lookups.
func NewSourceText(src string) *SourceText {
	starts := []uint32{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}

	return &SourceText{src: src, lineStarts: starts}
}

// Text returns the underlying source.
func (st *SourceText) Text() string { return st.src }

// Len returns the source length in bytes.
func (st *SourceText) Len() int { return len(st.src) }

// Slice returns the source bytes covered by span, clamped to bounds.
func (st *SourceText) Slice(span Span) string {
	start := int(span.Start)
	end := int(span.End)
	if start > len(st.src) {
		start = len(st.src)
	}

	if end > len(st.src) {
		end = len(st.src)
	}

	if start > end {
		return ""
	}

	return st.src[start:end]
}

// PositionAt converts a byte offset to a 1-based line and column.
func (st *SourceText) PositionAt(offset uint32) (line, column uint32) {
	if int(offset) > len(st.src) {
		offset = uint32(len(st.src))
	}

	idx := sort.Search(len(st.lineStarts), func(i int) bool {
		return st.lineStarts[i] > offset
	}) - 1

	lineStart := st.lineStarts[idx]
	chars := uint32(utf8.RuneCountInString(st.src[lineStart:offset]))

	return uint32(idx + 1), chars + 1
}
