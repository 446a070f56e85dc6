package style

import (
	"errors"
	"fmt"
	"strings"
)

// Shape violations. They are reported wrapped in a *ParseError.
var (
	ErrRootNotObject    = errors.New("style root must be a JSON object")
	ErrLayersNotArray   = errors.New(`"layers" must be an array`)
	ErrDuplicateLayers  = errors.New(`duplicate "layers" key`)
	ErrLayerNotObject   = errors.New("layer must be an object")
	ErrLayerMissingID   = errors.New(`layer must have a non-empty string "id"`)
	ErrDuplicateLayerID = errors.New("duplicate layer id")
)

// ParseError reports candidate text that could not become a document.
// The previously published document is never touched when one is returned.
type ParseError struct {
	Text   string // the rejected text
	Offset int64  // byte offset of the problem, -1 if unknown
	Line   int    // 1-based, 0 if unknown
	Column int    // 1-based, 0 if unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("style: line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("style: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(text string, offset int64, err error) *ParseError {
	pe := &ParseError{Text: text, Offset: offset, Err: err}
	if offset >= 0 {
		pe.Line, pe.Column = lineColumn(text, offset)
	}
	return pe
}

// lineColumn converts a byte offset into 1-based line and column numbers.
func lineColumn(text string, offset int64) (int, int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	head := text[:offset]
	line := strings.Count(head, "\n") + 1
	col := len(head) - strings.LastIndexByte(head, '\n')
	return line, col
}
