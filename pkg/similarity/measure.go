package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Measure names accepted by the registry.
const (
	MeasureEquality    = "equality"
	MeasureLevenshtein = "levenshtein"
	MeasureJaroWinkler = "jarowinkler"
	MeasureNGram       = "ngram"
)

// Pair is a prepared comparison input. Both values have already been folded
// by the character-match policy of the comparison.
type Pair struct {
	First  string
	Second string
}

// Measure decides whether a pair is similar and scores it in [0,1].
type Measure interface {
	Name() string
	Similar(p Pair) bool
	Score(p Pair) float64
}

type equalityMeasure struct{}

// NewEqualityMeasure returns the exact equality measure.
func NewEqualityMeasure() Measure { return equalityMeasure{} }

func (equalityMeasure) Name() string { return MeasureEquality }

func (equalityMeasure) Similar(p Pair) bool { return p.First == p.Second }

func (m equalityMeasure) Score(p Pair) float64 {
	if m.Similar(p) {
		return 1
	}
	return 0
}

type levenshteinMeasure struct {
	cfg LevenshteinConfig
}

// NewLevenshteinMeasure returns an edit distance measure. Words no longer than
// MinLength must also contain one another; longer words may differ by at most
// min(MaxDistance, Threshold * shorter length) edits.
func NewLevenshteinMeasure(cfg LevenshteinConfig) Measure {
	return levenshteinMeasure{cfg: cfg}
}

func (levenshteinMeasure) Name() string { return MeasureLevenshtein }

func (m levenshteinMeasure) Similar(p Pair) bool {
	dist := levenshtein.ComputeDistance(p.First, p.Second)
	firstLen := utf8.RuneCountInString(p.First)
	secondLen := utf8.RuneCountInString(p.Second)

	if firstLen <= m.cfg.MinLength {
		return dist <= m.cfg.MaxDistance && containsEither(p.First, p.Second)
	}

	maxDynamic := int(m.cfg.Threshold * float64(min(firstLen, secondLen)))
	return dist <= min(m.cfg.MaxDistance, maxDynamic)
}

func (levenshteinMeasure) Score(p Pair) float64 {
	longest := max(utf8.RuneCountInString(p.First), utf8.RuneCountInString(p.Second))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(p.First, p.Second))/float64(longest)
}

type jaroWinklerMeasure struct {
	threshold float64
}

// NewJaroWinklerMeasure returns a jaro-winkler measure accepting scores at or
// above threshold.
func NewJaroWinklerMeasure(cfg JaroWinklerConfig) Measure {
	return jaroWinklerMeasure{threshold: cfg.Threshold}
}

func (jaroWinklerMeasure) Name() string { return MeasureJaroWinkler }

func (m jaroWinklerMeasure) Similar(p Pair) bool { return m.Score(p) >= m.threshold }

func (jaroWinklerMeasure) Score(p Pair) float64 { return JaroWinkler(p.First, p.Second) }

type ngramMeasure struct {
	n         int
	threshold float64
}

// NewNGramMeasure returns an n-gram distance measure accepting scores at or
// above threshold.
func NewNGramMeasure(cfg NGramConfig) Measure {
	return ngramMeasure{n: cfg.Length, threshold: cfg.Threshold}
}

func (ngramMeasure) Name() string { return MeasureNGram }

func (m ngramMeasure) Similar(p Pair) bool { return m.Score(p) >= m.threshold }

func (m ngramMeasure) Score(p Pair) float64 { return NGramSimilarity(p.First, p.Second, m.n) }
