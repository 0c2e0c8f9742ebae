// Package result decides whether the queue site's final message means there
// is nothing to book.
package result

import (
	"fmt"
	"regexp"
)

// Verdict is the outcome of classifying a result message.
type Verdict string

const (
	NoSlots        Verdict = "no_slots"
	SlotsAvailable Verdict = "slots_available"
)

// DefaultNoSlotPatterns match the site's "no free time" wording in either
// word order.
var DefaultNoSlotPatterns = []string{
	`нет\s+свободного\s+времени`,
	`свободного\s+времени\s+нет`,
}

// Classification carries the verdict and, for NoSlots, the pattern that matched.
type Classification struct {
	Verdict Verdict
	Pattern string
}

// Classifier matches result messages against compiled, case-insensitive rules.
type Classifier struct {
	rules []*regexp.Regexp
}

// NewClassifier compiles the default patterns plus any extra ones.
func NewClassifier(extra ...string) (*Classifier, error) {
	c := &Classifier{}
	for _, p := range append(append([]string{}, DefaultNoSlotPatterns...), extra...) {
		if err := c.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Classifier) AddPattern(pattern string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid no-slot pattern %q: %w", pattern, err)
	}
	c.rules = append(c.rules, re)
	return nil
}

func (c *Classifier) Classify(message string) Classification {
	for _, re := range c.rules {
		if re.MatchString(message) {
			return Classification{Verdict: NoSlots, Pattern: re.String()}
		}
	}
	return Classification{Verdict: SlotsAvailable}
}
