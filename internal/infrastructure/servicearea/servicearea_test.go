package servicearea

import (
	"context"
	"testing"
)

func TestStaticEmptyListServesEverywhere(t *testing.T) {
	s := NewStatic(nil)
	if !s.Serviceable(context.Background(), "99999") {
		t.Fatal("empty prefix list must serve all postal codes")
	}
}

func TestStaticPrefixMatch(t *testing.T) {
	s := NewStatic([]string{"123", " 90 ", ""})

	tests := []struct {
		code string
		want bool
	}{
		{"12345", true},
		{"90210", true},
		{" 90210", true},
		{"54321", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := s.Serviceable(context.Background(), tt.code); got != tt.want {
			t.Errorf("Serviceable(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
