package similarity

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Abbreviations maps abbreviations to the phrases they stand for. Rules are
// compiled on the first Ambiguate after a change, so bulk loads compile once.
type Abbreviations struct {
	meanings map[string][]string

	mu    sync.Mutex
	rules []abbreviationRule
	stale bool
}

type abbreviationRule struct {
	abbreviation string
	pattern      *regexp.Regexp
}

// NewAbbreviations returns an empty dictionary.
func NewAbbreviations() *Abbreviations {
	return &Abbreviations{meanings: make(map[string][]string)}
}

// Add records meanings for abbr. Blank or duplicate meanings are ignored.
func (a *Abbreviations) Add(abbr string, meanings ...string) {
	abbr = strings.TrimSpace(abbr)
	if abbr == "" {
		return
	}
	existing := a.meanings[abbr]
	for _, m := range meanings {
		m = strings.Join(strings.Fields(m), " ")
		if m == "" || containsFold(existing, m) {
			continue
		}
		existing = append(existing, m)
	}
	if len(existing) == 0 {
		return
	}
	a.meanings[abbr] = existing
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()
}

// Len returns the number of abbreviations.
func (a *Abbreviations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.meanings)
}

// Keys returns the abbreviations in sorted order.
func (a *Abbreviations) Keys() []string {
	keys := make([]string, 0, len(a.meanings))
	for k := range a.meanings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Meanings returns the phrases recorded for abbr.
func (a *Abbreviations) Meanings(abbr string) []string {
	return append([]string(nil), a.meanings[abbr]...)
}

// Ambiguate replaces every known meaning in text with its abbreviation,
// matching whole words case-insensitively. "Personal Computer Database"
// becomes "PC DB" when both abbreviations are known.
func (a *Abbreviations) Ambiguate(text string) string {
	if a == nil {
		return text
	}
	for _, r := range a.compiled() {
		text = r.pattern.ReplaceAllLiteralString(text, r.abbreviation)
	}
	return text
}

func (a *Abbreviations) compiled() []abbreviationRule {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stale {
		a.rebuild()
		a.stale = false
	}
	return a.rules
}

// rebuild orders rules longest meaning first, then by abbreviation, so
// "Database Management System" wins over "Database" and the outcome never
// depends on map iteration.
func (a *Abbreviations) rebuild() {
	type entry struct{ abbr, meaning string }
	var entries []entry
	for _, abbr := range a.Keys() {
		for _, m := range a.meanings[abbr] {
			entries = append(entries, entry{abbr, m})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].meaning) != len(entries[j].meaning) {
			return len(entries[i].meaning) > len(entries[j].meaning)
		}
		return entries[i].abbr < entries[j].abbr
	})

	rules := make([]abbreviationRule, 0, len(entries))
	for _, e := range entries {
		words := strings.Fields(e.meaning)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		expr := `(?i)\b` + strings.Join(words, `\s+`) + `\b`
		rules = append(rules, abbreviationRule{abbreviation: e.abbr, pattern: regexp.MustCompile(expr)})
	}
	a.rules = rules
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
