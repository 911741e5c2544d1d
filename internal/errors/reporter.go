package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"minicc/internal/ast"
)

// ErrorLevel represents the severity of an error
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
)

// CompilerError represents a structured error with source context
type CompilerError struct {
	Level    ErrorLevel
	Code     string       // Error code like E0001
	Message  string       // Primary error message
	Position ast.Position // Location in source
	Length   int          // Length of the problematic region
}

// NewSemanticError creates an error-level CompilerError
func NewSemanticError(code, message string, pos ast.Position) CompilerError {
	return CompilerError{
		Level:    Error,
		Code:     code,
		Message:  message,
		Position: pos,
		Length:   1,
	}
}

// ErrorReporter handles consistent error formatting
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a new error reporter for a file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// FormatError formats a compiler error with a caret marker under the
// offending source region.
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var result strings.Builder

	levelColor := color.New(color.FgRed).SprintFunc()
	if err.Level == Warning {
		levelColor = color.New(color.FgYellow).SprintFunc()
	}
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[E0001]: message
	result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
		levelColor(string(err.Level)), err.Code, err.Message))

	lineNumberWidth := len(fmt.Sprintf("%d", err.Position.Line))
	if lineNumberWidth < 3 {
		lineNumberWidth = 3
	}
	indent := strings.Repeat(" ", lineNumberWidth)

	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), er.filename, err.Position.Line, err.Position.Column))
	result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	var lineContent string
	if err.Position.Line-1 >= 0 && err.Position.Line-1 < len(er.lines) {
		lineContent = er.lines[err.Position.Line-1]
	}
	result.WriteString(fmt.Sprintf("%s %s %s\n",
		fmt.Sprintf("%*d", lineNumberWidth, err.Position.Line), dim("│"), lineContent))

	marker := strings.Repeat(" ", max(0, err.Position.Column-1)) +
		strings.Repeat("^", max(1, err.Length))
	result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), bold(levelColor(marker))))

	return result.String()
}
