package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestEmbedIsDeterministicAndNormalised(t *testing.T) {
	a := Embed("Tomato soup")
	b := Embed("tomato   SOUP!")
	assert.Equal(t, a.Slice(), b.Slice())
	assert.Len(t, a.Slice(), Dimensions)
	assert.InDelta(t, 1.0, cosine(a.Slice(), a.Slice()), 1e-5)
}

func TestEmbedRanksCloserSpellingsHigher(t *testing.T) {
	query := Embed("tomato")
	near := Embed("tomatoes and basil")
	far := Embed("chocolate cake")
	assert.Greater(t, cosine(query.Slice(), near.Slice()), cosine(query.Slice(), far.Slice()))
}

func TestEmbedEmptyText(t *testing.T) {
	v := Embed("   ")
	for _, x := range v.Slice() {
		assert.Zero(t, x)
	}
}
