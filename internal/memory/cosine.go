package memory

import (
	"math"
	"sort"

	"murmur/internal/domain"
)

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty, zero-length, or the dimensions disagree.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankBySimilarity returns the texts of the k records most similar to vector,
// most similar first. Shared by the SQLite and Redis backends.
func rankBySimilarity(recs []domain.EmbeddingRecord, vector []float64, k int) []string {
	if len(recs) == 0 || len(vector) == 0 || k <= 0 {
		return nil
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(recs))
	for _, rec := range recs {
		ranked = append(ranked, scored{text: rec.Text, score: cosineSimilarity(vector, rec.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	texts := make([]string, 0, k)
	for _, r := range ranked[:k] {
		texts = append(texts, r.text)
	}
	return texts
}
