// Package textdiff computes similarity ratios and bounded unified diffs over
// extracted page text.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// MaxDiffLines caps the emitted unified diff; the remainder is summarized as
// a count.
const MaxDiffLines = 50

// Similarity returns a ratio in [0,1] between two texts, 1.0 when they are
// equal. Multi-line inputs are compared line-wise, short single-line inputs
// character-wise. The ratio is directional: Similarity(a, b) need not equal
// Similarity(b, a).
func Similarity(oldText, newText string) float64 {
	if oldText == newText {
		return 1.0
	}
	var a, b []string
	if strings.Contains(oldText, "\n") || strings.Contains(newText, "\n") {
		a = difflib.SplitLines(oldText)
		b = difflib.SplitLines(newText)
	} else {
		a = strings.Split(oldText, "")
		b = strings.Split(newText, "")
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// Unified produces a unified-style line diff between two texts, truncated at
// MaxDiffLines emitted lines.
func Unified(oldText, newText string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "previous",
		ToFile:   "current",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("generate unified diff: %w", err)
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if text == "" {
		return "", nil
	}
	if len(lines) <= MaxDiffLines {
		return text, nil
	}
	truncated := len(lines) - MaxDiffLines
	kept := append(lines[:MaxDiffLines], fmt.Sprintf("... (truncated, %d more lines)", truncated))
	return strings.Join(kept, "\n") + "\n", nil
}
