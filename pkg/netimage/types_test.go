package netimage

import (
	"math"
	"testing"
)

func TestSizeNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Size
		want Size
	}{
		{"zero stays zero", Size{}, Size{}},
		{"positive kept", Size{Width: 56, Height: 42}, Size{Width: 56, Height: 42}},
		{"negative cleared", Size{Width: -10, Height: 20}, Size{Width: 0, Height: 20}},
		{"nan cleared", Size{Width: math.NaN(), Height: 20}, Size{Width: 0, Height: 20}},
		{"inf cleared", Size{Width: math.Inf(1), Height: math.Inf(1)}, Size{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.normalize(); got != tt.want {
				t.Errorf("normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSizeIsZero(t *testing.T) {
	if !(Size{}).IsZero() {
		t.Error("zero size reported non-zero")
	}
	if (Size{Width: 1}).IsZero() {
		t.Error("sized value reported zero")
	}
}

func TestSizeLongestEdge(t *testing.T) {
	tests := []struct {
		name  string
		size  Size
		scale float64
		want  int
	}{
		{"zero size is native", Size{}, 2, 0},
		{"width wins", Size{Width: 100, Height: 50}, 1, 100},
		{"height wins", Size{Width: 50, Height: 100}, 1, 100},
		{"scale applied", Size{Width: 56, Height: 56}, 3, 168},
		{"fractional rounds up", Size{Width: 10.4, Height: 1}, 1, 11},
		{"zero scale treated as one", Size{Width: 40, Height: 40}, 0, 40},
		{"tiny size clamps to one pixel", Size{Width: 0.2, Height: 0.1}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.size.longestEdge(tt.scale); got != tt.want {
				t.Errorf("longestEdge(%v) = %d, want %d", tt.scale, got, tt.want)
			}
		})
	}
}

func TestRefIsZero(t *testing.T) {
	if !Ref("").IsZero() {
		t.Error("empty ref reported non-zero")
	}
	if Ref("https://example.com/a.png").IsZero() {
		t.Error("non-empty ref reported zero")
	}
}

func TestPhaseStateString(t *testing.T) {
	tests := []struct {
		state PhaseState
		want  string
	}{
		{PhaseEmpty, "empty"},
		{PhaseLoading, "loading"},
		{PhaseSuccess, "success"},
		{PhaseFailure, "failure"},
		{PhaseState(42), "PhaseState(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("PhaseState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestKeyDistinguishesSizes(t *testing.T) {
	a := Key{Ref: "https://example.com/a.png", Size: Size{Width: 56, Height: 56}}
	b := Key{Ref: "https://example.com/a.png", Size: Size{}}
	if a == b {
		t.Error("keys with distinct sizes compare equal")
	}
	if a != (Key{Ref: "https://example.com/a.png", Size: Size{Width: 56, Height: 56}}) {
		t.Error("identical keys compare unequal")
	}
}
