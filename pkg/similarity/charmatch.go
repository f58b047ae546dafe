package similarity

import (
	"bufio"
	_ "embed"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CharMatch selects how individual characters are compared.
type CharMatch string

const (
	// CharMatchExact compares code points for equality.
	CharMatchExact CharMatch = "exact"

	// CharMatchCaseFold compares code points after Unicode case folding.
	CharMatchCaseFold CharMatch = "casefold"

	// CharMatchHomoglyph treats visually confusable code points as equal.
	CharMatchHomoglyph CharMatch = "homoglyph"
)

func (m CharMatch) valid() bool {
	switch m {
	case CharMatchExact, CharMatchCaseFold, CharMatchHomoglyph:
		return true
	}
	return false
}

//go:embed confusables.txt
var confusablesData string

var (
	confusablesOnce sync.Once
	confusables     map[rune]rune
)

func confusableTable() map[rune]rune {
	confusablesOnce.Do(func() {
		confusables = parseConfusables(confusablesData)
	})
	return confusables
}

// parseConfusables reads "source ; target ; type # comment" lines. Lines with
// multi code point targets are skipped.
func parseConfusables(data string) map[rune]rune {
	table := make(map[rune]rune)
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Split(line, ";")
		if len(fields) < 2 {
			continue
		}
		src, ok := parseCodePoint(fields[0])
		if !ok {
			continue
		}
		dst, ok := parseCodePoint(fields[1])
		if !ok {
			continue
		}
		table[src] = dst
	}
	return table
}

func parseCodePoint(field string) (rune, bool) {
	parts := strings.Fields(field)
	if len(parts) != 1 {
		return 0, false
	}
	v, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// Fold maps s into the form compared by the character-level measures. Exact
// leaves s untouched, casefold applies Unicode case folding, and homoglyph
// additionally NFKC normalises and replaces confusable code points with
// their Latin skeleton.
func (m CharMatch) Fold(s string) string {
	switch m {
	case CharMatchCaseFold:
		return cases.Fold().String(s)
	case CharMatchHomoglyph:
	default:
		return s
	}

	table := confusableTable()
	folded := norm.NFKC.String(cases.Fold().String(s))
	return strings.Map(func(r rune) rune {
		if to, ok := table[r]; ok {
			return to
		}
		return r
	}, folded)
}
