package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestParseVector(t *testing.T) {
	tests := []struct {
		in   string
		want []float32
	}{
		{"1,0,0", []float32{1, 0, 0}},
		{"0.5, -0.25  2", []float32{0.5, -0.25, 2}},
		{" 3 ", []float32{3}},
	}
	for _, tt := range tests {
		got, err := ParseVector(tt.in)
		if err != nil {
			t.Fatalf("ParseVector(%q): %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("ParseVector(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseVector(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestParseVector_errors(t *testing.T) {
	for _, in := range []string{"", " , ", "1,x,3"} {
		if _, err := ParseVector(in); err == nil {
			t.Errorf("ParseVector(%q) should fail", in)
		}
	}
}
