package search

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/pageza/larder/backend/internal/textnorm"
)

// Dimensions matches the vector(64) column on recipes.
const Dimensions = 64

// Embed returns a deterministic, L2-normalised embedding built from hashed
// character trigrams of each word. Similar spellings land near each other,
// which is enough to rank name/text matches without an external model.
func Embed(text string) pgvector.Vector {
	vec := make([]float32, Dimensions)
	for _, word := range strings.FieldsFunc(textnorm.Fold(text), isSeparator) {
		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h := fnv.New32a()
			_, _ = h.Write([]byte(string(padded[i : i+3])))
			vec[h.Sum32()%Dimensions]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return pgvector.NewVector(vec)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
