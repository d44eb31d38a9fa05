package memory

import (
	"math"
	"testing"

	"murmur/internal/domain"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"dimension mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankBySimilarity(t *testing.T) {
	recs := []domain.EmbeddingRecord{
		{Text: "far", Vector: []float64{0, 1}},
		{Text: "near", Vector: []float64{1, 0.1}},
		{Text: "exact", Vector: []float64{1, 0}},
	}

	got := rankBySimilarity(recs, []float64{1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0] != "exact" || got[1] != "near" {
		t.Fatalf("unexpected ranking: %v", got)
	}
}

func TestRankBySimilarityEdgeCases(t *testing.T) {
	recs := []domain.EmbeddingRecord{{Text: "only", Vector: []float64{1, 0}}}

	if got := rankBySimilarity(recs, nil, 3); got != nil {
		t.Fatalf("nil vector should rank nothing, got %v", got)
	}
	if got := rankBySimilarity(nil, []float64{1, 0}, 3); got != nil {
		t.Fatalf("no records should rank nothing, got %v", got)
	}
	if got := rankBySimilarity(recs, []float64{1, 0}, 5); len(got) != 1 {
		t.Fatalf("k beyond record count should clamp, got %v", got)
	}
}
