package environment

import (
	"errors"
	"testing"

	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func actionSpec() Spec {
	return NewIntervalSpec(Action, []r1.Interval{{Min: 0, Max: 3}}, Discrete)
}

func TestDiscreteAction(t *testing.T) {
	s := actionSpec()

	for want := 0; want < 4; want++ {
		have, err := DiscreteAction(mat.NewVecDense(1, []float64{float64(want)}), s)
		if err != nil {
			t.Errorf("action %d: unexpected error: %v", want, err)
		}
		if have != want {
			t.Errorf("\n\twant(%d)\n\thave(%d)", want, have)
		}
	}

	invalid := []*mat.VecDense{
		mat.NewVecDense(1, []float64{-1}),
		mat.NewVecDense(1, []float64{4}),
		mat.NewVecDense(1, []float64{1.5}),
		mat.NewVecDense(2, []float64{0, 1}),
	}
	for _, a := range invalid {
		_, err := DiscreteAction(a, s)
		var actionErr *InvalidActionError
		if !errors.As(err, &actionErr) {
			t.Errorf("action %v: expected *InvalidActionError, have %v",
				mat.Formatted(a.T()), err)
		}
	}

	if _, err := DiscreteAction(nil, s); err == nil {
		t.Error("nil action should be rejected")
	}
}

func TestNewSpecPanicsOnMismatchedBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on mismatched bounds")
		}
	}()
	NewSpec(mat.NewVecDense(2, nil), Observation, mat.NewVecDense(1, nil),
		mat.NewVecDense(2, nil), Discrete)
}

func TestSpecContains(t *testing.T) {
	s := NewIntervalSpec(Observation, []r1.Interval{
		{Min: 0, Max: 9},
		{Min: 0, Max: 4},
	}, Discrete)

	if !s.Contains(mat.NewVecDense(2, []float64{9, 4})) {
		t.Error("upper bounds should be contained")
	}
	if s.Contains(mat.NewVecDense(2, []float64{9, 5})) {
		t.Error("(9, 5) should not be contained")
	}
	if s.Contains(mat.NewVecDense(1, []float64{0})) {
		t.Error("vector of wrong length should not be contained")
	}
	if have := s.Intervals()[1].Max; have != 4 {
		t.Errorf("\n\twant(4)\n\thave(%v)", have)
	}
}

func TestCategoricalStarterBounds(t *testing.T) {
	bounds := []int{3, 7}
	s := NewCategoricalStarter(bounds, rand.NewSource(1))

	for i := 0; i < 500; i++ {
		start := s.Start()
		for j, b := range bounds {
			v := start.AtVec(j)
			if v < 0 || v >= float64(b) || v != float64(int(v)) {
				t.Fatalf("dimension %d sampled %v outside [0, %d)", j, v, b)
			}
		}
	}
}

func TestCategoricalStarterReproducible(t *testing.T) {
	a := NewCategoricalStarter([]int{10, 10}, rand.NewSource(42))
	b := NewCategoricalStarter([]int{10, 10}, rand.NewSource(42))

	for i := 0; i < 20; i++ {
		if !mat.Equal(a.Start(), b.Start()) {
			t.Fatal("identically seeded starters diverged")
		}
	}
}

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)

	step := ts.New(ts.Mid, 0, 1, nil, 2)
	if limit.End(&step) {
		t.Error("step 2 should not end a 3 step episode")
	}

	step = ts.New(ts.Mid, 0, 1, nil, 3)
	if !limit.End(&step) || !step.Last() || step.EndType() != ts.Timeout {
		t.Errorf("step 3 should end the episode with a timeout, have %v "+
			"(%v)", step, step.EndType())
	}
}

func TestEndersPrecedence(t *testing.T) {
	goal := NewFunctionEnder(func(v *mat.VecDense) bool {
		return v.AtVec(0) == 1
	}, ts.TerminalStateReached)
	e := Enders{goal, NewStepLimit(1)}

	step := ts.New(ts.Mid, 0, 1, mat.NewVecDense(1, []float64{1}), 1)
	if !e.End(&step) || step.EndType() != ts.TerminalStateReached {
		t.Errorf("goal should take precedence over the step limit, have %v",
			step.EndType())
	}
}
