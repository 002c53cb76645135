package embedding

import (
	"context"
	"math"
	"testing"
)

func TestFitEmptyCorpus(t *testing.T) {
	if _, err := NewTFIDF(8).Fit(nil); err != ErrEmptyCorpus {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestFitIDFWeights(t *testing.T) {
	e := NewTFIDF(32)
	state, err := e.Fit([]string{"apple banana", "apple cherry"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// apple appears in both docs, banana in one.
	idxApple, ok := state.Terms["apple"]
	if !ok {
		t.Fatal("apple not in vocabulary")
	}
	idxBanana, ok := state.Terms["banana"]
	if !ok {
		t.Fatal("banana not in vocabulary")
	}

	// idf = log((1+N)/(1+df)) + 1 with N=2
	wantApple := math.Log(3.0/3.0) + 1
	wantBanana := math.Log(3.0/2.0) + 1
	if got := float64(state.IDF[idxApple]); math.Abs(got-wantApple) > 1e-6 {
		t.Errorf("apple idf: got %v, want %v", got, wantApple)
	}
	if got := float64(state.IDF[idxBanana]); math.Abs(got-wantBanana) > 1e-6 {
		t.Errorf("banana idf: got %v, want %v", got, wantBanana)
	}
	if wantBanana <= wantApple {
		t.Error("rarer term should weigh more")
	}
}

func TestFitFirstSeenOrder(t *testing.T) {
	e := NewTFIDF(32)
	state, err := e.Fit([]string{"fox owl", "owl cat"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if state.Terms["fox"] != 0 || state.Terms["owl"] != 1 || state.Terms["cat"] != 2 {
		t.Errorf("expected first-seen index order, got %v", state.Terms)
	}
}

func TestFitPrunesLowDF(t *testing.T) {
	e := NewTFIDF(2)
	corpus := []string{
		"cat dog",
		"cat elk",
		"cat owl",
		"owl fox",
	}
	state, err := e.Fit(corpus)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(state.Terms) != 2 {
		t.Fatalf("expected 2 kept terms, got %d", len(state.Terms))
	}
	if _, ok := state.Terms["cat"]; !ok {
		t.Error("highest-df term pruned")
	}
	if _, ok := state.Terms["owl"]; !ok {
		t.Error("second-df term pruned")
	}
	// Survivors keep their first-seen relative order.
	if state.Terms["cat"] != 0 || state.Terms["owl"] != 1 {
		t.Errorf("kept terms reordered: %v", state.Terms)
	}
}

func TestEmbedNormalized(t *testing.T) {
	e := NewTFIDF(32)
	state, err := e.Fit([]string{"alpha beta gamma", "beta gamma delta"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	vec, err := e.Embed(context.Background(), "alpha beta beta", state)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != state.Dimension {
		t.Fatalf("dimension: got %d, want %d", len(vec), state.Dimension)
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %v", math.Sqrt(norm))
	}
}

func TestEmbedNoVocabularyTokens(t *testing.T) {
	e := NewTFIDF(16)
	state, _ := e.Fit([]string{"alpha beta"})

	vec, err := e.Embed(context.Background(), "zz qq xx", state)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, x := range vec {
		if x != 0 {
			t.Fatalf("expected zero vector, index %d is %v", i, x)
		}
	}
}

func TestEmbedUnfitted(t *testing.T) {
	e := NewTFIDF(16)
	if _, err := e.Embed(context.Background(), "text", nil); err != ErrNotFitted {
		t.Errorf("expected ErrNotFitted, got %v", err)
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e := NewTFIDF(64)
	state, _ := e.Fit([]string{"the quick brown fox", "jumps over the lazy dog"})

	a, _ := e.Embed(context.Background(), "quick fox jumps", state)
	b, _ := e.Embed(context.Background(), "quick fox jumps", state)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic embedding at index %d", i)
		}
	}
}

func TestPrefixGramMatching(t *testing.T) {
	e := NewTFIDF(64)
	state, err := e.Fit([]string{"use jwt for authentication flows", "database connection pooling"})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	auth, err := e.Embed(context.Background(), "auth", state)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	doc, _ := e.Embed(context.Background(), "use jwt for authentication flows", state)
	other, _ := e.Embed(context.Background(), "database connection pooling", state)

	if Dot(auth, doc) <= Dot(auth, other) {
		t.Errorf("prefix gram should relate auth to authentication: %v vs %v",
			Dot(auth, doc), Dot(auth, other))
	}
	if Dot(auth, doc) <= 0 {
		t.Errorf("expected positive similarity, got %v", Dot(auth, doc))
	}
}

func TestStateCodecRoundTrip(t *testing.T) {
	e := NewTFIDF(32)
	state, _ := e.Fit([]string{"alpha beta gamma", "gamma delta"})
	state.Version = 3

	blob, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeState(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Version != 3 || got.Dimension != state.Dimension {
		t.Errorf("header round trip: %+v", got)
	}
	if len(got.Terms) != len(state.Terms) {
		t.Fatalf("terms: got %d, want %d", len(got.Terms), len(state.Terms))
	}
	for term, idx := range state.Terms {
		if got.Terms[term] != idx {
			t.Errorf("term %q: got %d, want %d", term, got.Terms[term], idx)
		}
		if got.IDF[idx] != state.IDF[idx] {
			t.Errorf("idf[%d]: got %v, want %v (float32 must round-trip exactly)", idx, got.IDF[idx], state.IDF[idx])
		}
	}
}

func TestDecodeStateRejectsBadDimension(t *testing.T) {
	if _, err := DecodeState([]byte(`{"version":1,"dim":0}`)); err == nil {
		t.Error("expected error for non-positive dimension")
	}
}

func TestDotPrenormalized(t *testing.T) {
	a := Vector{0.6, 0.8}
	b := Vector{0.8, 0.6}
	want := 0.6*0.8 + 0.8*0.6
	if got := Dot(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("dot: got %v, want %v", got, want)
	}
	if Dot(a, Vector{1}) != 0 {
		t.Error("mismatched lengths should score zero")
	}
}
