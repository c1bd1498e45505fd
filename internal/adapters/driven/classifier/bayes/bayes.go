// Package bayes implements driven.CategoryClassifier as a multinomial
// naive-Bayes model over title tokens.
package bayes

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.CategoryClassifier = (*Classifier)(nil)

// DefaultAlpha is the Laplace smoothing constant.
const DefaultAlpha = 1.0

type class struct {
	category domain.Category
	docs     int
	tokens   int
	counts   map[string]int
}

// Classifier is safe for concurrent use. Train swaps the whole model.
type Classifier struct {
	alpha float64

	mu      sync.RWMutex
	classes []*class
	vocab   map[string]struct{}
	docs    int
}

// New creates an untrained classifier.
func New(alpha float64) *Classifier {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &Classifier{alpha: alpha}
}

// Train rebuilds the model. Each classified record contributes its title
// and notes; the category's own minor and sub names are added once per
// class so that short titles naming the feature still match.
func (c *Classifier) Train(records []domain.EffortRecord) error {
	byKey := make(map[string]*class)
	vocab := make(map[string]struct{})
	docs := 0

	add := func(cl *class, text string) {
		for _, tok := range Tokenize(text) {
			cl.counts[tok]++
			cl.tokens++
			vocab[tok] = struct{}{}
		}
	}

	for i := range records {
		rec := &records[i]
		if !rec.Category.IsComplete() {
			continue
		}
		key := rec.Category.String()
		cl, ok := byKey[key]
		if !ok {
			cl = &class{category: rec.Category, counts: make(map[string]int)}
			byKey[key] = cl
			add(cl, rec.Category.Minor+" "+rec.Category.Sub)
		}
		cl.docs++
		docs++
		add(cl, rec.Title+" "+rec.Notes)
	}

	classes := make([]*class, 0, len(byKey))
	for _, cl := range byKey {
		classes = append(classes, cl)
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].category.String() < classes[j].category.String()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = classes
	c.vocab = vocab
	c.docs = docs
	return nil
}

// Trained reports whether at least one classified record was seen.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docs > 0
}

// Predict returns the most probable category and its posterior probability.
// Text with no known token is unclassified with zero confidence.
func (c *Classifier) Predict(text string) (domain.Category, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.docs == 0 {
		return domain.Unclassified(), 0
	}

	var known []string
	for _, tok := range Tokenize(text) {
		if _, ok := c.vocab[tok]; ok {
			known = append(known, tok)
		}
	}
	if len(known) == 0 {
		return domain.Unclassified(), 0
	}

	v := float64(len(c.vocab))
	scores := make([]float64, len(c.classes))
	best := 0
	for i, cl := range c.classes {
		score := math.Log(float64(cl.docs) / float64(c.docs))
		denom := float64(cl.tokens) + c.alpha*v
		for _, tok := range known {
			score += math.Log((float64(cl.counts[tok]) + c.alpha) / denom)
		}
		scores[i] = score
		if score > scores[best] {
			best = i
		}
	}

	// Posterior of the best class via log-sum-exp.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return c.classes[best].category, 1 / sum
}

// Tokenize lower-cases text and splits it into words. Hangul words are
// additionally split into character bigrams, since Korean feature names
// are compounds ("소셜로그인" shares "로그" with "로그인").
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, w := range words {
		out = append(out, w)
		runes := []rune(w)
		if len(runes) < 3 || !isHangul(runes) {
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			out = append(out, string(runes[i:i+2]))
		}
	}
	return out
}

func isHangul(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
