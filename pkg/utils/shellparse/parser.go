// Package shellparse splits service argument strings into argv vectors.
//
// A package descriptor carries SERVICE_ARGS, and a registry record carries
// SHELL_ARGS, as one flat string that a service manager must hand to exec
// as separate arguments. Split applies POSIX word-splitting rules to that
// string without involving a shell; Join renders an argv vector back into
// a single displayable command string.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote reports a quote that was opened but never closed.
	ErrUnclosedQuote = errors.New("unclosed quote in argument string")

	// ErrTrailingEscape reports a backslash with nothing after it.
	ErrTrailingEscape = errors.New("trailing escape in argument string")
)

type quoteState int

const (
	unquoted quoteState = iota
	singleQuoted
	doubleQuoted
)

// Split breaks a raw argument string into an argv vector. Words separate on
// unquoted whitespace. Single quotes are fully literal; inside double quotes
// a backslash escapes only `"`, `\`, `$` and backtick; elsewhere a backslash
// escapes the next character. A quoted empty string yields an empty argument.
func Split(raw string) ([]string, error) {
	argv := []string{}
	var word strings.Builder
	quotedWord := false
	state := unquoted

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case singleQuoted:
			if c == '\'' {
				state = unquoted
				continue
			}
			word.WriteRune(c)

		case doubleQuoted:
			switch c {
			case '"':
				state = unquoted
			case '\\':
				if i+1 == len(runes) {
					return nil, ErrTrailingEscape
				}
				i++
				next := runes[i]
				switch next {
				case '"', '\\', '$', '`':
					word.WriteRune(next)
				default:
					// The backslash is literal before ordinary characters.
					word.WriteRune('\\')
					word.WriteRune(next)
				}
			default:
				word.WriteRune(c)
			}

		default:
			switch {
			case c == '\'':
				state = singleQuoted
				quotedWord = true
			case c == '"':
				state = doubleQuoted
				quotedWord = true
			case c == '\\':
				if i+1 == len(runes) {
					return nil, ErrTrailingEscape
				}
				i++
				word.WriteRune(runes[i])
			case unicode.IsSpace(c):
				if word.Len() > 0 || quotedWord {
					argv = append(argv, word.String())
					word.Reset()
					quotedWord = false
				}
			default:
				word.WriteRune(c)
			}
		}
	}

	switch state {
	case singleQuoted:
		return nil, fmt.Errorf("%w: single quote", ErrUnclosedQuote)
	case doubleQuoted:
		return nil, fmt.Errorf("%w: double quote", ErrUnclosedQuote)
	}

	if word.Len() > 0 || quotedWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}

// Join renders an argv vector as one command string, quoting arguments that
// contain whitespace or shell-special characters. Join(Split(s)) preserves
// the argv even when the quoting style differs from s.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`") {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, c := range arg {
		switch c {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	b.WriteByte('"')
	return b.String()
}
