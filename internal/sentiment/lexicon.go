package sentiment

import (
	"strings"
	"unicode"
)

// Fixed word lists for the deterministic local fallback scorer. These are
// intentionally small: the lexicon is a degraded-mode stand-in for the
// external classifier, not a competing model.

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"wonderful": true, "fantastic": true, "helpful": true, "fast": true,
	"quick": true, "reliable": true, "professional": true, "friendly": true,
	"thanks": true, "thank": true, "appreciate": true, "love": true,
	"perfect": true, "satisfied": true, "happy": true, "pleased": true,
	"smooth": true, "easy": true, "impressed": true, "recommend": true,
	"resolved": true, "best": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "horrible": true,
	"slow": true, "late": true, "delayed": true, "lost": true,
	"damaged": true, "broken": true, "rude": true, "unacceptable": true,
	"disappointed": true, "disappointing": true, "frustrated": true,
	"frustrating": true, "angry": true, "upset": true, "useless": true,
	"worst": true, "poor": true, "failed": true, "failure": true,
	"refund": true, "complaint": true, "unhappy": true, "wrong": true,
	"missing": true, "never": true, "cancel": true,
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// lexiconScore is the deterministic fallback: hit counting against the
// fixed word lists, normalized by a tenth of the word count.
func lexiconScore(text string) (score, confidence float64, keywords []string) {
	words := tokenize(text)
	if len(words) == 0 {
		return 0, 0, nil
	}

	var pos, neg int
	seen := map[string]bool{}
	for _, word := range words {
		switch {
		case positiveWords[word]:
			pos++
		case negativeWords[word]:
			neg++
		default:
			continue
		}
		if !seen[word] {
			seen[word] = true
			keywords = append(keywords, word)
		}
	}

	score = float64(pos-neg) / (0.1 * float64(len(words)))
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	confidence = float64(pos+neg) / 10
	if confidence > 0.9 {
		confidence = 0.9
	}
	return score, confidence, keywords
}
