package embedding

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/membootio/memboot/internal/model"
)

// DefaultMaxFeatures is the default vector dimension for the TF-IDF backend.
const DefaultMaxFeatures = 512

// prefixLen is the length of the prefix gram emitted alongside longer
// tokens, so that "auth" and "authentication" land on a shared term.
const prefixLen = 4

var tokenRe = regexp.MustCompile(`\w{2,}`)

// TFIDF is the default statistical embedder. It needs no external model:
// the vocabulary and IDF weights are fitted from the corpus itself and
// carried in the shared VocabularyState.
type TFIDF struct {
	maxFeatures int
}

// NewTFIDF creates a TF-IDF embedder producing vectors of the given
// fixed dimension.
func NewTFIDF(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDF{maxFeatures: maxFeatures}
}

func (t *TFIDF) Name() string { return "tfidf" }

// Fit builds a fresh vocabulary state from the corpus. Term indices are
// assigned in first-seen order; when the vocabulary exceeds the feature
// budget, the lowest-document-frequency terms are pruned and the survivors
// keep their relative order. A refit always produces a new state, never a
// renumbering of an old one: stale vectors reference old indices and must
// be regenerated wholesale.
func (t *TFIDF) Fit(corpus []string) (*model.VocabularyState, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	df := make(map[string]int)
	var order []string
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, tok := range tokenize(doc) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			if df[tok] == 0 {
				order = append(order, tok)
			}
			df[tok]++
		}
	}

	kept := order
	if len(order) > t.maxFeatures {
		ranked := make([]string, len(order))
		copy(ranked, order)
		pos := make(map[string]int, len(order))
		for i, term := range order {
			pos[term] = i
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if df[ranked[i]] != df[ranked[j]] {
				return df[ranked[i]] > df[ranked[j]]
			}
			return pos[ranked[i]] < pos[ranked[j]]
		})
		keep := make(map[string]bool, t.maxFeatures)
		for _, term := range ranked[:t.maxFeatures] {
			keep[term] = true
		}
		kept = kept[:0:0]
		for _, term := range order {
			if keep[term] {
				kept = append(kept, term)
			}
		}
	}

	n := float64(len(corpus))
	terms := make(map[string]int, len(kept))
	idf := make([]float32, len(kept))
	for i, term := range kept {
		terms[term] = i
		// Smoothed so a corpus of size 1 still yields bounded weights.
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}

	return &model.VocabularyState{
		Version:   0, // assigned by the store on commit
		Dimension: t.maxFeatures,
		Terms:     terms,
		IDF:       idf,
	}, nil
}

// Embed computes the L2-normalized TF-IDF vector of text under state.
// Text with no in-vocabulary tokens embeds to the zero vector.
func (t *TFIDF) Embed(_ context.Context, text string, state *model.VocabularyState) (Vector, error) {
	if state == nil || len(state.Terms) == 0 {
		return nil, ErrNotFitted
	}

	vec := make(Vector, state.Dimension)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	total := float64(len(tokens))
	for tok, count := range counts {
		idx, ok := state.Terms[tok]
		if !ok || idx >= len(state.IDF) {
			continue
		}
		tf := float64(count) / total
		vec[idx] = float32(tf) * state.IDF[idx]
	}

	normalize(vec)
	return vec, nil
}

// tokenize lowercases and extracts word tokens of two or more characters.
// Tokens longer than the prefix length also emit their prefix gram.
func tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw)*2)
	for _, tok := range raw {
		tokens = append(tokens, tok)
		if len(tok) > prefixLen {
			tokens = append(tokens, tok[:prefixLen])
		}
	}
	return tokens
}
