package floatutils

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{3, -1, 3, 2, 3})
	if max != 3 {
		t.Errorf("\n\twant(3)\n\thave(%v)", max)
	}
	want := []int{0, 2, 4}
	if len(indices) != len(want) {
		t.Fatalf("\n\twant(%v)\n\thave(%v)", want, indices)
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("\n\twant(%v)\n\thave(%v)", want, indices)
		}
	}
}

func TestArgMaxBreaksTies(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := []float64{1, 5, 0, 5}
	seen := map[int]bool{}

	for i := 0; i < 200; i++ {
		a := ArgMax(values, rng)
		if a != 1 && a != 3 {
			t.Fatalf("index %d is not a maximum", a)
		}
		seen[a] = true
	}
	if !seen[1] || !seen[3] {
		t.Errorf("ties should be broken randomly, saw %v", seen)
	}
}

func TestClip(t *testing.T) {
	for _, c := range []struct{ in, want float64 }{
		{-2, 0}, {0.5, 0.5}, {3, 1},
	} {
		if have := Clip(c.in, 0, 1); have != c.want {
			t.Errorf("\n\twant(%v)\n\thave(%v)", c.want, have)
		}
	}
	if have := Max(3, -1, 2); have != 3 {
		t.Errorf("\n\twant(%v)\n\thave(%v)", 3, have)
	}
}
