// Package expand replaces variable references of the form '${name}' in a
// string. A bare '$name' is resolved only for names the caller designates
// (the predefined positionals); any other bare '$' passes through untouched
// so command text aimed at the shell keeps its own dollar syntax.
package expand

import (
	"bytes"
	"fmt"
)

func varStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b == '_')
}

func varInner(b byte) bool {
	return varStart(b) || (b >= '0' && b <= '9')
}

// A Resolver returns the value of a variable reference found during
// expansion.
type Resolver func(name string) (value string, err error)

// A BareFn reports whether a brace-less '$name' reference should be
// resolved.
type BareFn func(name string) bool

// Expand replaces every '${name}' in s with the value returned by rvar.
// '$$' produces a literal '$'. A bare '$name' is resolved only when bare
// reports true for name; otherwise the text is copied as-is.
func Expand(s string, rvar Resolver, bare BareFn) (string, error) {
	buf := &bytes.Buffer{}
	for i := 0; i < len(s); {
		b := s[i]
		if b != '$' {
			buf.WriteByte(b)
			i++
			continue
		}
		if i+1 >= len(s) {
			buf.WriteByte('$')
			break
		}
		switch {
		case s[i+1] == '$':
			buf.WriteByte('$')
			i += 2
		case s[i+1] == '{':
			end := -1
			for j := i + 2; j < len(s); j++ {
				if s[j] == '}' {
					end = j
					break
				}
			}
			if end < 0 {
				return "", fmt.Errorf("unterminated variable reference: %s", s[i:])
			}
			value, err := rvar(s[i+2 : end])
			if err != nil {
				return "", err
			}
			buf.WriteString(value)
			i = end + 1
		case varStart(s[i+1]):
			j := i + 1
			for j < len(s) && varInner(s[j]) {
				j++
			}
			name := s[i+1 : j]
			if bare != nil && bare(name) {
				value, err := rvar(name)
				if err != nil {
					return "", err
				}
				buf.WriteString(value)
			} else {
				buf.WriteString(s[i:j])
			}
			i = j
		default:
			buf.WriteByte('$')
			i++
		}
	}
	return buf.String(), nil
}
