package oneiro

import (
	"math"
	"testing"
)

func TestVectorScan(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Vector
		wantErr  bool
	}{
		{
			name:     "scan from string",
			input:    "[0.1,0.2,0.3]",
			expected: Vector{0.1, 0.2, 0.3},
		},
		{
			name:     "scan from bytes",
			input:    []byte("[0.5,0.6,0.7]"),
			expected: Vector{0.5, 0.6, 0.7},
		},
		{
			name:     "scan nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "scan empty",
			input:    "[]",
			expected: nil,
		},
		{
			name:     "scan with spaces",
			input:    "[0.1, 0.2, 0.3]",
			expected: Vector{0.1, 0.2, 0.3},
		},
		{
			name:    "scan invalid type",
			input:   123,
			wantErr: true,
		},
		{
			name:    "scan invalid number",
			input:   "[0.1,abc,0.3]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vector
			err := v.Scan(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(v) != len(tt.expected) {
				t.Errorf("length mismatch: got %d, want %d", len(v), len(tt.expected))
				return
			}

			for i := range v {
				if v[i] != tt.expected[i] {
					t.Errorf("element %d: got %f, want %f", i, v[i], tt.expected[i])
				}
			}
		})
	}
}

func TestVectorValue(t *testing.T) {
	t.Run("non-empty vector", func(t *testing.T) {
		v := Vector{0.1, 0.2, 0.3}
		val, err := v.Value()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != "[0.1,0.2,0.3]" {
			t.Errorf("expected pgvector format, got %v", val)
		}
	})

	t.Run("nil vector", func(t *testing.T) {
		var v Vector
		val, err := v.Value()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil, got %v", val)
		}
	})
}

func TestVectorRoundTrip(t *testing.T) {
	original := Vector{0.25, -0.5, 1.75}

	val, err := original.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}

	var restored Vector
	if err := restored.Scan(val); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(restored) != len(original) {
		t.Fatalf("length mismatch: got %d, want %d", len(restored), len(original))
	}
	for i := range original {
		if restored[i] != original[i] {
			t.Errorf("element %d: got %f, want %f", i, restored[i], original[i])
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1},
		{"orthogonal", Vector{1, 0}, Vector{0, 1}, 0},
		{"opposite", Vector{1, 0}, Vector{-1, 0}, -1},
		{"scaled", Vector{1, 2, 3}, Vector{2, 4, 6}, 1},
		{"mismatched lengths", Vector{1, 2}, Vector{1, 2, 3}, 0},
		{"zero vector", Vector{0, 0}, Vector{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}
