package service

import (
	"math"
	"strings"
)

// NormalizeTitle canonicalizes a lesson title for exact-match comparison:
// lowercased, surrounding whitespace trimmed, internal runs of whitespace
// collapsed to single spaces.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// CosineSimilarity computes the cosine similarity of two embedding vectors.
// Mismatched dimensions or a zero-magnitude vector yield 0, which keeps
// malformed embeddings out of the candidate set instead of erroring.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
