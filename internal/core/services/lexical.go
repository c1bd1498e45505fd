package services

import (
	"slices"
	"strings"
	"unicode"
)

// KeywordSet is a normalised bag of query keywords.
type KeywordSet map[string]struct{}

// Has reports whether the set contains k.
func (s KeywordSet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the keywords in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// stopWords are function words and filler verbs dropped during normalisation.
var stopWords = map[string]struct{}{
	"공수": {}, "의": {}, "에": {}, "을": {}, "를": {}, "이": {}, "가": {}, "은": {}, "는": {},
	"에서": {}, "로": {}, "으로": {}, "와": {}, "과": {}, "도": {}, "만": {}, "까지": {}, "부터": {},
	"때문에": {}, "위해": {}, "대한": {}, "관련": {}, "기능": {}, "개발": {}, "작업": {},
	"알려줘": {}, "알려주세요": {}, "알려줍시다": {}, "알려주시면": {}, "알려": {},
	"분석해줘": {}, "분석해주세요": {}, "분석": {},
	"얼마야": {}, "얼마예요": {}, "얼마인가요": {}, "얼마": {},
	"어떻게": {}, "어떤": {}, "어떠한": {},
	"돼": {}, "되": {}, "되어": {}, "되는": {},
	"해줘": {}, "해주세요": {}, "해주시면": {}, "해": {},
	"뭐야": {}, "뭐예요": {}, "무엇": {}, "무엇인가": {},
}

// genericKeywords are high-frequency domain fillers. A match made only of
// these is penalised.
var genericKeywords = map[string]struct{}{
	"api": {}, "시스템": {}, "기능": {}, "개발": {}, "작업": {}, "가이드": {},
}

// IsStopWord reports whether w is dropped by Normalize.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// LexicalScorer scores keyword overlap between a query and a candidate text.
// It is stateless and safe for concurrent use.
type LexicalScorer struct{}

// NewLexicalScorer creates a lexical scorer.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// Tokens returns the surviving keywords of text in order, without the
// concatenated token.
func (l *LexicalScorer) Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	var out []string
	for _, f := range fields {
		for _, part := range splitScripts(f) {
			if len([]rune(part)) <= 1 || IsStopWord(part) {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

// Normalize lowercases text, splits mixed-script tokens, drops short
// tokens and stop words, and appends the concatenation of the survivors.
func (l *LexicalScorer) Normalize(text string) KeywordSet {
	tokens := l.Tokens(text)
	set := make(KeywordSet, len(tokens)+1)
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	if len(tokens) >= 2 {
		set[strings.Join(tokens, "")] = struct{}{}
	}
	return set
}

// Score returns the fraction of query keywords covered by the candidate,
// counting substring matches in either direction.
func (l *LexicalScorer) Score(query, candidate KeywordSet) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}

	matched := make(KeywordSet)
	for q := range query {
		if candidate.Has(q) {
			matched[q] = struct{}{}
		}
	}
	for q := range query {
		for c := range candidate {
			if strings.Contains(c, q) || strings.Contains(q, c) {
				matched[q] = struct{}{}
				matched[c] = struct{}{}
			}
		}
	}

	covered := 0
	specific := 0
	for q := range query {
		if !matched.Has(q) {
			continue
		}
		covered++
		if _, generic := genericKeywords[q]; !generic {
			specific++
		}
	}
	if covered == len(query) {
		return 1.0
	}

	ratio := float64(covered) / float64(len(query))
	if covered > 0 && specific == 0 {
		ratio *= 0.5
	}
	return ratio
}

// ScoreText normalises both texts and scores them.
func (l *LexicalScorer) ScoreText(query, candidate string) float64 {
	return l.Score(l.Normalize(query), l.Normalize(candidate))
}

// CombinedScore blends semantic similarity and lexical ratio for ranking.
func CombinedScore(similarity, ratio float64) float64 {
	return 0.6*similarity + 0.4*ratio
}

// Similarity converts a vector distance into a similarity in (0,1].
func Similarity(distance float64) float64 {
	if distance <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + distance)
}

// Accept is the hard gate for a feedback cache hit: full keyword coverage
// and a near-identical vector.
func Accept(ratio, distance, epsilon float64) bool {
	return ratio >= 1.0 && distance < epsilon
}

type script int

const (
	scriptOther script = iota
	scriptLatin
	scriptHangul
)

func scriptOf(r rune) script {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return scriptLatin
	case unicode.Is(unicode.Hangul, r):
		return scriptHangul
	default:
		return scriptOther
	}
}

// splitScripts splits a token at every boundary between ASCII
// alphanumerics and Hangul ("uq연동" -> "uq", "연동").
func splitScripts(token string) []string {
	var parts []string
	var cur []rune
	prev := scriptOther
	for _, r := range token {
		s := scriptOf(r)
		if len(cur) > 0 && s != prev && (s == scriptLatin || prev == scriptLatin) &&
			(s == scriptHangul || prev == scriptHangul) {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
		prev = s
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
