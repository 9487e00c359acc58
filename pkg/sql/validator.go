// Package sql normalizes and classifies statements sent to the compute cluster.
package sql

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrMultipleStatements indicates the query contains more than one statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrEmptyStatement indicates the query is blank.
	ErrEmptyStatement = errors.New("query must not be empty")
	// ErrNotReadStatement indicates a write statement was sent to a read-only endpoint.
	ErrNotReadStatement = errors.New("only read statements (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN, VALUES, TABLE) are allowed")
)

// ValidateAndNormalize trims the statement, strips one trailing semicolon and
// rejects anything that still contains a semicolon outside string literals.
func ValidateAndNormalize(query string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(query))
	if normalized == "" {
		return "", ErrEmptyStatement
	}
	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"TABLE":    true,
}

// IsReadStatement reports whether the statement's leading keyword is a read.
// Leading comments and opening parentheses are skipped.
func IsReadStatement(query string) bool {
	return readKeywords[LeadingKeyword(query)]
}

// LeadingKeyword returns the first keyword of a statement in upper case.
func LeadingKeyword(query string) string {
	s := query
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}

func hasSemicolonOutsideStrings(query string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
	)

	state := stateNormal
	escaped := false

	for _, ch := range query {
		switch state {
		case stateNormal:
			switch ch {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '`':
				state = stateBacktick
			}
		case stateSingleQuote, stateDoubleQuote:
			quote := '\''
			if state == stateDoubleQuote {
				quote = '"'
			}
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				// '' re-enters on the next quote, which keeps us inside the literal
				state = stateNormal
			}
		case stateBacktick:
			if ch == '`' {
				state = stateNormal
			}
		}
	}

	return false
}

func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}
	return query
}
