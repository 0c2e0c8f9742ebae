// Package captcha turns the queue site's challenge image into its numeric code.
package captcha

import (
	"context"
	"errors"
	"strings"
)

// CodeLength is the number of digits in every challenge.
const CodeLength = 6

// ErrUnsolved is returned when a solver produced no 6-digit code.
var ErrUnsolved = errors.New("no 6-digit code found in captcha")

// Solver converts challenge image bytes into the pictured code.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, image []byte) (string, error)

func (f SolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// ExtractCode returns the first word of text made of exactly CodeLength
// ASCII digits. Words are separated by anything that is not a letter or digit.
func ExtractCode(text string) (string, bool) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isASCIIDigit(r) && !isLetter(r)
	})
	for _, w := range words {
		if len(w) != CodeLength {
			continue
		}
		ok := true
		for _, r := range w {
			if !isASCIIDigit(r) {
				ok = false
				break
			}
		}
		if ok {
			return w, true
		}
	}
	return "", false
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127
}
