package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseErrorKind classifies a ParseError.
type ParseErrorKind int

const (
	// Syntax is malformed YAML.
	Syntax ParseErrorKind = iota
	// DanglingAlias is an alias whose anchor was never declared.
	DanglingAlias
	// Unsupported is YAML outside the handled subset (multiple documents,
	// complex keys, recursive anchors).
	Unsupported
)

func (k ParseErrorKind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case DanglingAlias:
		return "dangling_alias"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ParseError reports YAML that could not be imported. Line and Column are
// 1-based and zero when the parser did not provide them.
type ParseError struct {
	Kind    ParseErrorKind
	Line    int
	Column  int
	Anchor  string
	Message string
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		if e.Column > 0 {
			return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, msg)
		}
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

var (
	yamlLinePattern    = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)
	yamlUnknownAnchor  = regexp.MustCompile(`unknown anchor '([^']*)' referenced`)
	aliasTokenBoundary = regexp.MustCompile(`[\s,\[\]{}]`)
)

// FromYAMLError converts an error returned by yaml.v3 into a *ParseError,
// locating dangling aliases in src when yaml.v3 does not report a position.
func FromYAMLError(src []byte, err error) *ParseError {
	msg := err.Error()
	if m := yamlUnknownAnchor.FindStringSubmatch(msg); m != nil {
		line, col := locateAlias(src, m[1])
		return &ParseError{
			Kind:    DanglingAlias,
			Line:    line,
			Column:  col,
			Anchor:  m[1],
			Message: fmt.Sprintf("alias *%s refers to an undefined anchor", m[1]),
		}
	}
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &ParseError{Kind: Syntax, Line: line, Message: m[2]}
	}
	return &ParseError{Kind: Syntax, Message: strings.TrimPrefix(msg, "yaml: ")}
}

// locateAlias finds the first "*name" token in src that is followed by a
// token boundary. It does not understand quoting, so it is only a best guess.
func locateAlias(src []byte, name string) (line, col int) {
	token := "*" + name
	for i, l := range strings.Split(string(src), "\n") {
		from := 0
		for {
			idx := strings.Index(l[from:], token)
			if idx < 0 {
				break
			}
			end := from + idx + len(token)
			if end == len(l) || aliasTokenBoundary.MatchString(l[end:end+1]) {
				return i + 1, from + idx + 1
			}
			from = end
		}
	}
	return 0, 0
}
