package service

import (
	"math"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "already normalized", title: "garden basics 101", want: "garden basics 101"},
		{name: "mixed case", title: "Garden Basics 101", want: "garden basics 101"},
		{name: "trailing whitespace", title: "garden basics 101 ", want: "garden basics 101"},
		{name: "leading whitespace and tabs", title: "\t Garden Basics 101", want: "garden basics 101"},
		{name: "internal whitespace runs", title: "Garden   Basics\t101", want: "garden basics 101"},
		{name: "empty", title: "", want: ""},
		{name: "whitespace only", title: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "opposite vectors", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "mismatched dimensions", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0},
		{name: "empty vectors", a: nil, b: nil, want: 0},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	a := []float32{0.5, 1.5, 2.5}
	scaled := []float32{1, 3, 5}

	got := CosineSimilarity(a, scaled)
	if math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("expected similarity 1 for scaled vector, got %f", got)
	}
}
