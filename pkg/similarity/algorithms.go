package similarity

import (
	"strings"

	"github.com/xrash/smetrics"
)

const (
	winklerPrefixLimit = 4
	winklerBoostFrom   = 0.7
)

// JaroWinkler returns the jaro-winkler similarity of a and b in [0,1]. The
// prefix boost applies above 0.7 and counts at most four characters.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1
	}
	return smetrics.JaroWinkler(a, b, winklerBoostFrom, winklerPrefixLimit)
}

// ngramPad marks positions before the start of a word.
const ngramPad = '\n'

// NGramSimilarity returns 1 - d/max(len) where d is the n-gram edit distance
// of Kondrak (2005): a levenshtein distance over n-grams in which the cost of
// replacing one n-gram with another is the fraction of differing positions.
// Words are padded at the front so every character starts an n-gram.
func NGramSimilarity(a, b string, n int) float64 {
	s, t := []rune(a), []rune(b)
	sl, tl := len(s), len(t)
	if sl == 0 || tl == 0 {
		if sl == tl {
			return 1
		}
		return 0
	}
	if n < 1 {
		n = 1
	}

	if sl < n || tl < n {
		same := 0
		for i := 0; i < min(sl, tl); i++ {
			if s[i] == t[i] {
				same++
			}
		}
		return float64(same) / float64(max(sl, tl))
	}

	padded := []rune(strings.Repeat(string(ngramPad), n-1) + a)
	tPadded := []rune(strings.Repeat(string(ngramPad), n-1) + b)

	prev := make([]float64, sl+1)
	cur := make([]float64, sl+1)
	for i := range prev {
		prev[i] = float64(i)
	}

	for j := 1; j <= tl; j++ {
		gram := tPadded[j-1 : j-1+n]
		cur[0] = float64(j)
		for i := 1; i <= sl; i++ {
			cost, tn := 0, n
			for k := 0; k < n; k++ {
				sc := padded[i-1+k]
				if sc != gram[k] {
					cost++
				} else if sc == ngramPad {
					tn--
				}
			}
			edit := float64(cost) / float64(tn)
			cur[i] = min(cur[i-1]+1, prev[i]+1, prev[i-1]+edit)
		}
		prev, cur = cur, prev
	}
	return 1 - prev[sl]/float64(max(sl, tl))
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
