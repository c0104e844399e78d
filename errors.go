package docweaver

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by this package matches exactly one
// of them with errors.Is.
var (
	ErrParse       = errors.New("parse error")
	ErrResolution  = errors.New("resolution error")
	ErrRenderer    = errors.New("renderer error")
	ErrAttribute   = errors.New("attribute error")
	ErrComposition = errors.New("composition error")
)

// Position represents a position in the input text.
type Position struct {
	Offset int // 0-based byte offset
	Line   int // 1-based line number
	Column int // 1-based column number, in bytes
}

// String returns a string representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// IsValid reports whether the position was set.
func (p Position) IsValid() bool { return p.Line > 0 }

// positionAt converts a byte offset in src into a Position.
func positionAt(src string, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if nl := strings.LastIndexByte(src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return Position{Offset: offset, Line: line, Column: col}
}

// ParseError is the base error type for all positioned errors.
type ParseError struct {
	Pos     Position // Position where the error occurred
	Message string   // Error message
	Context string   // Surrounding content for context
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.format(e.Message)
}

func (e *ParseError) format(msg string) string {
	if !e.Pos.IsValid() {
		return msg
	}
	if e.Context != "" {
		return fmt.Sprintf("%s at %s\nContext:\n%s", msg, e.Pos, e.Context)
	}
	return fmt.Sprintf("%s at %s", msg, e.Pos)
}

// Is reports ErrParse as the category.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// UnterminatedDirectiveError is returned when a directive start marker has no
// matching end marker. Pos is the offset of the start marker.
type UnterminatedDirectiveError struct {
	ParseError
}

// Error implements the error interface.
func (e *UnterminatedDirectiveError) Error() string {
	return e.format("unterminated directive: " + e.Message)
}

// DirectiveSyntaxError represents malformed text between the markers.
type DirectiveSyntaxError struct {
	ParseError
	Name string // Directive name, when it was read before the failure
}

// Error implements the error interface.
func (e *DirectiveSyntaxError) Error() string {
	if e.Name != "" {
		return e.format(fmt.Sprintf("malformed directive %q: %s", e.Name, e.Message))
	}
	return e.format("malformed directive: " + e.Message)
}

// UnknownDirectiveError is returned when a directive name is not in the
// registry.
type UnknownDirectiveError struct {
	ParseError
	Name string
}

// Error implements the error interface.
func (e *UnknownDirectiveError) Error() string {
	return e.format(fmt.Sprintf("unknown directive %q", e.Name))
}

// Is reports ErrResolution as the category.
func (e *UnknownDirectiveError) Is(target error) bool { return target == ErrResolution }

// UndefinedVariableError is returned when an identifier is missing from the
// variable context.
type UndefinedVariableError struct {
	ParseError
	Name string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return e.format(fmt.Sprintf("undefined variable %q", e.Name))
}

// Is reports ErrResolution as the category.
func (e *UndefinedVariableError) Is(target error) bool { return target == ErrResolution }

// RendererError wraps a failure of a registered renderer function.
type RendererError struct {
	ParseError
	Name string // Directive name
	Err  error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *RendererError) Error() string {
	return e.format(fmt.Sprintf("directive %q failed: %s", e.Name, e.Message))
}

// Is reports ErrRenderer as the category.
func (e *RendererError) Is(target error) bool { return target == ErrRenderer }

// Unwrap returns the renderer's own error.
func (e *RendererError) Unwrap() error { return e.Err }

// InvalidAttributeError is returned when an attribute key cannot be
// serialized.
type InvalidAttributeError struct {
	Path string // Node path, e.g. body/div[0]/p[1]
	Tag  string
	Key  string
}

// Error implements the error interface.
func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("invalid attribute %q on <%s> at %s", e.Key, e.Tag, e.Path)
}

// Is reports ErrAttribute as the category.
func (e *InvalidAttributeError) Is(target error) bool { return target == ErrAttribute }

// MissingRootError is returned by a strict Page that has neither head nor
// body.
type MissingRootError struct {
	Path string
}

// Error implements the error interface.
func (e *MissingRootError) Error() string {
	return fmt.Sprintf("page %s has no head and no body", e.Path)
}

// Is reports ErrComposition as the category.
func (e *MissingRootError) Is(target error) bool { return target == ErrComposition }

// MisplacedDirectiveError is returned when directive markup cannot be put
// back where the directive was, e.g. a directive inside a link target or an
// image description.
type MisplacedDirectiveError struct {
	ParseError
	Name string
}

// Error implements the error interface.
func (e *MisplacedDirectiveError) Error() string {
	return e.format(fmt.Sprintf("directive %q misplaced: %s", e.Name, e.Message))
}

// Is reports ErrComposition as the category.
func (e *MisplacedDirectiveError) Is(target error) bool { return target == ErrComposition }

// NewParseError creates a new ParseError with context.
func NewParseError(src string, offset int, message string) *ParseError {
	pos := positionAt(src, offset)
	return &ParseError{
		Pos:     pos,
		Message: message,
		Context: extractContext(src, pos),
	}
}

// NewUnterminatedDirectiveError creates a new UnterminatedDirectiveError for
// a start marker at offset.
func NewUnterminatedDirectiveError(src string, offset int, marker string) *UnterminatedDirectiveError {
	return &UnterminatedDirectiveError{
		ParseError: *NewParseError(src, offset, fmt.Sprintf("missing %q", marker)),
	}
}

// NewDirectiveSyntaxError creates a new DirectiveSyntaxError.
func NewDirectiveSyntaxError(src string, offset int, name, message string) *DirectiveSyntaxError {
	return &DirectiveSyntaxError{
		ParseError: *NewParseError(src, offset, message),
		Name:       name,
	}
}

// NewUnknownDirectiveError creates a new UnknownDirectiveError.
func NewUnknownDirectiveError(src string, offset int, name string) *UnknownDirectiveError {
	return &UnknownDirectiveError{
		ParseError: *NewParseError(src, offset, "not registered"),
		Name:       name,
	}
}

// NewUndefinedVariableError creates a new UndefinedVariableError. An empty
// src yields an error without position.
func NewUndefinedVariableError(src string, offset int, name string) *UndefinedVariableError {
	e := &UndefinedVariableError{Name: name}
	if src != "" {
		e.ParseError = *NewParseError(src, offset, "not in context")
	}
	return e
}

// NewRendererError creates a new RendererError.
func NewRendererError(src string, offset int, name string, cause error) *RendererError {
	msg := "renderer failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &RendererError{
		ParseError: *NewParseError(src, offset, msg),
		Name:       name,
		Err:        cause,
	}
}

// NewMisplacedDirectiveError creates a new MisplacedDirectiveError.
func NewMisplacedDirectiveError(src string, offset int, name, message string) *MisplacedDirectiveError {
	return &MisplacedDirectiveError{
		ParseError: *NewParseError(src, offset, message),
		Name:       name,
	}
}

// NewInvalidAttributeError creates a new InvalidAttributeError.
func NewInvalidAttributeError(path, tag, key string) *InvalidAttributeError {
	return &InvalidAttributeError{Path: path, Tag: tag, Key: key}
}

// extractContext extracts a snippet of text around the error position for context.
// It tries to include a few lines before and after the error.
func extractContext(content string, pos Position) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	if pos.Line > len(lines) {
		return content // Fallback if position is out of range
	}

	// Determine the range of lines to include
	startLine := max(0, pos.Line-3)
	endLine := min(len(lines)-1, pos.Line+1)

	var contextBuilder strings.Builder
	for i := startLine; i <= endLine; i++ {
		lineNum := i + 1
		if lineNum == pos.Line {
			contextBuilder.WriteString(fmt.Sprintf("-> %d: %s\n", lineNum, lines[i]))

			// Point at the column
			if pos.Column <= len(lines[i])+1 {
				pad := len(fmt.Sprintf("-> %d: ", lineNum)) + pos.Column - 1
				contextBuilder.WriteString(strings.Repeat(" ", pad) + "^\n")
			}
		} else {
			contextBuilder.WriteString(fmt.Sprintf("   %d: %s\n", lineNum, lines[i]))
		}
	}

	return contextBuilder.String()
}
