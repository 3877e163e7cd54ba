package bikeshare

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	env "github.com/rlgrid/gridsim/environment"
	ts "github.com/rlgrid/gridsim/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func action(a int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(a)})
}

func newBikeShare(t *testing.T, c Config, seed uint64) *BikeShare {
	t.Helper()
	b, _, err := New(c, rand.NewSource(seed))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return b
}

func TestInitialSupply(t *testing.T) {
	c := DefaultConfig()
	c.Length, c.Width = 5, 3
	b := newBikeShare(t, c, 1)

	supply := b.Supply()
	for l := 0; l < 5; l++ {
		want := float64(c.HighSupply)
		if l < 2 {
			want = float64(c.LowSupply)
		}
		for w := 0; w < 3; w++ {
			if have := supply.At(l, w); have != want {
				t.Errorf("station (%d, %d) \n\twant(%v)\n\thave(%v)", l, w,
					want, have)
			}
		}
	}

	if have := mat.Sum(supply); have != float64(c.TotalSupply()) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", c.TotalSupply(), have)
	}
	if mat.Sum(b.Pending()) != 0 {
		t.Error("pending arrivals should start at zero")
	}

	for d, costs := range b.CostMatrix() {
		if r, cols := costs.Dims(); r != 5 || cols != 3 {
			t.Fatalf("cost matrix %d has shape %dx%d", d, r, cols)
		}
		if min, max := mat.Min(costs), mat.Max(costs); min < 0 ||
			max >= float64(c.MaxRelocationCost) {
			t.Errorf("costs should lie in [0, %d), have [%v, %v]",
				c.MaxRelocationCost, min, max)
		}
	}
}

func TestEpisodeBoundary(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 5
	b := newBikeShare(t, c, 2)

	for i := 1; i <= 5; i++ {
		step, done, err := b.Step(action(Down))
		if err != nil {
			t.Fatal(err)
		}

		if done != (i == 5) {
			t.Errorf("step %d: done = %v", i, done)
		}
		if step.Number != i {
			t.Errorf("\n\twant(%d)\n\thave(%d)", i, step.Number)
		}
		if i < 5 && b.RemainingActions() != 5-i {
			t.Errorf("\n\twant(%d)\n\thave(%d)", 5-i, b.RemainingActions())
		}
		if i == 5 {
			if !step.Last() || step.EndType() != ts.Timeout {
				t.Errorf("last step should end the episode, have %v", step)
			}
			if sum := mat.Sum(b.Pending()); sum != 0 {
				t.Errorf("pending arrivals should be committed, have %v", sum)
			}
			if n := len(b.UnserviceRatios()); n != 1 {
				t.Errorf("\n\twant(1 unservice ratio)\n\thave(%d)", n)
			}
			if b.RemainingActions() != 5 {
				t.Errorf("action budget should be restored, have %d",
					b.RemainingActions())
			}
		}
	}

	if len(b.UnserviceRatios()) != 1 || len(b.Expenses()) != 1 {
		t.Error("metrics should have one entry per episode")
	}

	// The environment continues into the next episode
	for i := 1; i <= 5; i++ {
		step, done, err := b.Step(action(Up))
		if err != nil {
			t.Fatal(err)
		}
		if step.Number != i || done != (i == 5) {
			t.Errorf("second episode step %d: number %d done %v", i,
				step.Number, done)
		}
	}
	if n := len(b.UnserviceRatios()); n != 2 {
		t.Errorf("\n\twant(2)\n\thave(%d)", n)
	}
}

func TestSupplyConservedAcrossCommit(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 7
	b := newBikeShare(t, c, 3)
	r := rand.New(rand.NewSource(4))

	for episode := 0; episode < 20; episode++ {
		for {
			before := mat.Sum(b.Supply()) + mat.Sum(b.Pending())
			_, done, err := b.Step(action(r.Intn(Actions)))
			if err != nil {
				t.Fatal(err)
			}
			after := mat.Sum(b.Supply()) + mat.Sum(b.Pending())
			if before != after {
				t.Fatalf("bikes lost: %v before, %v after", before, after)
			}

			if mat.Min(b.Supply()) < 0 {
				t.Fatalf("negative supply reached: %v",
					mat.Formatted(b.Supply()))
			}
			if !b.ObservationSpec().Contains(b.State()) {
				t.Fatal("observation outside of the observation spec")
			}
			if done {
				break
			}
		}
	}

	if have := mat.Sum(b.Supply()); have != float64(c.TotalSupply()) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", c.TotalSupply(), have)
	}
}

func TestResetEpisodeCommits(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 50
	b := newBikeShare(t, c, 5)

	for i := 0; i < 10; i++ {
		b.Step(action(Right))
	}
	supply, pending := b.Supply(), b.Pending()
	unserviced := b.Metrics().Unserviced
	expense := b.Metrics().Expense

	b.ResetEpisode()

	var want mat.Dense
	want.Add(supply, pending)
	if !mat.Equal(&want, b.Supply()) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", mat.Formatted(&want),
			mat.Formatted(b.Supply()))
	}
	if mat.Sum(b.Pending()) != 0 {
		t.Error("pending arrivals should be zeroed")
	}

	m := b.Metrics()
	if m.Unserviced != 0 {
		t.Errorf("unserviced count should be reset, have %d", m.Unserviced)
	}
	if m.Expense != expense {
		t.Errorf("expense should not be reset \n\twant(%v)\n\thave(%v)",
			expense, m.Expense)
	}
	if want := float64(unserviced) / 50; m.UnserviceRatios[0] != want {
		t.Errorf("\n\twant(%v)\n\thave(%v)", want, m.UnserviceRatios[0])
	}
	if b.RemainingActions() != 50 {
		t.Errorf("\n\twant(50)\n\thave(%d)", b.RemainingActions())
	}
}

// findInterest steps the environment until the pending request starts
// at a station satisfying pred
func findInterest(t *testing.T, b *BikeShare, pred func(Interest) bool) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		if pred(b.Interest()) {
			return
		}
		b.Step(action(Down))
	}
	t.Fatal("no matching interest sampled")
}

func TestOffGridRedirectNotApplied(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 100000
	b := newBikeShare(t, c, 6)

	// Stations in the bottom row start with plenty of supply
	findInterest(t, b, func(i Interest) bool {
		return i.StartL == c.Length-1
	})

	interest := b.Interest()
	supply, pending := b.Supply(), b.Pending()
	expense := b.Metrics().Expense

	if _, _, err := b.Step(action(Down)); err != nil {
		t.Fatal(err)
	}

	have := b.Supply()
	start := supply.At(interest.StartL, interest.StartW)
	if start <= 0 {
		t.Fatalf("start station should have supply, have %v", start)
	}
	if v := have.At(interest.StartL, interest.StartW); v != start-1 {
		t.Errorf("bike should depart the original station \n\twant(%v)"+
			"\n\thave(%v)", start-1, v)
	}

	arrivals := b.Pending()
	if v := arrivals.At(interest.DestL, interest.DestW); v !=
		pending.At(interest.DestL, interest.DestW)+1 {
		t.Errorf("destination should have one more pending arrival, have %v",
			v)
	}
	if b.Metrics().Expense != expense {
		t.Error("no incentive should be paid for a redirect not applied")
	}
}

func TestRedirectAppliedWithinGrid(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 100000
	b := newBikeShare(t, c, 7)

	// Redirect requests from the last sparsely supplied row into the
	// first densely supplied row
	findInterest(t, b, func(i Interest) bool {
		return i.StartL == c.Length/2-1
	})

	interest := b.Interest()
	supply := b.Supply()
	expense := b.Metrics().Expense
	cost := b.CostMatrix()[Down].At(interest.StartL, interest.StartW)

	b.Step(action(Down))
	have := b.Supply()

	redirected := supply.At(interest.StartL+1, interest.StartW)
	if v := have.At(interest.StartL+1, interest.StartW); v != redirected-1 {
		t.Errorf("bike should depart the redirected station \n\twant(%v)"+
			"\n\thave(%v)", redirected-1, v)
	}
	if v := have.At(interest.StartL, interest.StartW); v !=
		supply.At(interest.StartL, interest.StartW) {
		t.Errorf("original station should be untouched, have %v", v)
	}
	if b.Metrics().Expense != expense+cost {
		t.Errorf("\n\twant(%v)\n\thave(%v)", expense+cost,
			b.Metrics().Expense)
	}
}

func TestUnserviced(t *testing.T) {
	c := DefaultConfig()
	c.Length, c.Width = 2, 2
	c.LowSupply, c.HighSupply = 0, 0
	c.ActionsPerEpisode = 4
	b := newBikeShare(t, c, 8)

	for i := 0; i < 4; i++ {
		step, _, err := b.Step(action(Left))
		if err != nil {
			t.Fatal(err)
		}
		// The first step is measured against a deviation of 0
		want := 0.0
		if i == 0 {
			want = -c.TargetSupply
		}
		if step.Reward != want {
			t.Errorf("step %d:\n\twant(%v)\n\thave(%v)", i, want,
				step.Reward)
		}
	}
	if ratios := b.UnserviceRatios(); ratios[0] != 1 {
		t.Errorf("\n\twant(1)\n\thave(%v)", ratios[0])
	}
}

func TestRewardIsErrorDecrease(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 1000
	b := newBikeShare(t, c, 9)

	meanError := func() float64 {
		s := b.Supply()
		r, cols := s.Dims()
		var total float64
		for i := 0; i < r; i++ {
			for j := 0; j < cols; j++ {
				d := s.At(i, j) - c.TargetSupply
				if d < 0 {
					d = -d
				}
				total += d
			}
		}
		return total / float64(r*cols)
	}

	prev := 0.0
	for i := 0; i < 100; i++ {
		step, _, _ := b.Step(action(i % Actions))
		current := meanError()
		if !scalar.EqualWithinAbs(step.Reward, prev-current, 1e-12) {
			t.Fatalf("\n\twant(%v)\n\thave(%v)", prev-current, step.Reward)
		}
		prev = current
	}
}

func TestFirstRewardAfterReset(t *testing.T) {
	b := newBikeShare(t, DefaultConfig(), 1)

	for episode := 0; episode < 2; episode++ {
		step, _, err := b.Step(action(Down))
		if err != nil {
			t.Fatal(err)
		}
		want := -b.supplyError()
		if !scalar.EqualWithinAbs(step.Reward, want, 1e-12) {
			t.Errorf("episode %d:\n\twant(%v)\n\thave(%v)", episode, want,
				step.Reward)
		}

		if _, err := b.Reset(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNextMoveVector(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 100000
	b := newBikeShare(t, c, 10)

	findInterest(t, b, func(i Interest) bool {
		return i.StartL == 0 && i.StartW == 0
	})
	vec := b.NextMoveVector()
	supply := b.Supply()

	want := []float64{supply.At(0, 0), Sentinel, supply.At(1, 0), Sentinel,
		supply.At(0, 1)}
	if !floats.Equal(want, vec.RawVector().Data) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", want, vec.RawVector().Data)
	}

	region, err := b.SubRegion(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(region) != 3 {
		t.Errorf("corner station should have two neighbours, have %v", region)
	}

	region, _ = b.SubRegion(2, 3)
	if len(region) != 5 {
		t.Errorf("inner station should have four neighbours, have %v", region)
	}
	if v, _ := b.SubState(2, 3); v != region[0] {
		t.Errorf("\n\twant(%v)\n\thave(%v)", v, region[0])
	}

	var boundsErr *env.OutOfBoundsError
	if _, err := b.SubState(6, 0); !errors.As(err, &boundsErr) {
		t.Errorf("expected *OutOfBoundsError, have %v", err)
	}
	if _, err := b.SubRegion(0, -1); !errors.As(err, &boundsErr) {
		t.Errorf("expected *OutOfBoundsError, have %v", err)
	}
}

func TestInvalidAction(t *testing.T) {
	b := newBikeShare(t, DefaultConfig(), 11)
	interest := b.Interest()
	remaining := b.RemainingActions()

	for _, a := range []*mat.VecDense{action(4), action(-1),
		mat.NewVecDense(1, []float64{0.5})} {
		var actionErr *env.InvalidActionError
		if _, _, err := b.Step(a); !errors.As(err, &actionErr) {
			t.Errorf("expected *InvalidActionError, have %v", err)
		}
	}

	if b.Interest() != interest || b.RemainingActions() != remaining {
		t.Error("invalid actions should not change the environment")
	}
}

func TestResetAndReconfigure(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 3
	b := newBikeShare(t, c, 12)

	for i := 0; i < 9; i++ {
		b.Step(action(Up))
	}
	if len(b.UnserviceRatios()) != 3 {
		t.Fatalf("\n\twant(3)\n\thave(%d)", len(b.UnserviceRatios()))
	}

	step, err := b.Reconfigure(3, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() || step.Observation.Len() != 12 {
		t.Errorf("reconfigured reset should return a first step over 12 "+
			"stations, have %v", step)
	}
	if len(b.UnserviceRatios()) != 0 || b.Metrics().Expense != 0 {
		t.Error("metrics should be zeroed on reset")
	}
	if l, w := b.Dims(); l != 3 || w != 4 {
		t.Errorf("\n\twant(3x4)\n\thave(%dx%d)", l, w)
	}
	if b.RemainingActions() != 2 {
		t.Errorf("\n\twant(2)\n\thave(%d)", b.RemainingActions())
	}

	if _, err := b.Reconfigure(0, 4, 2); err == nil {
		t.Error("invalid dimensions should be rejected")
	}
	if l, w := b.Dims(); l != 3 || w != 4 {
		t.Error("failed reconfiguration should not change the environment")
	}
}

func TestCurrentTimeStepIdempotent(t *testing.T) {
	b := newBikeShare(t, DefaultConfig(), 13)
	b.Step(action(Right))

	first, second := b.CurrentTimeStep(), b.CurrentTimeStep()
	if !mat.Equal(first.Observation, second.Observation) ||
		first.Reward != second.Reward || first.Number != second.Number {
		t.Error("CurrentTimeStep should be idempotent")
	}
	if len(first.Info) != 0 {
		t.Errorf("info should be empty, have %v", first.Info)
	}
}

func TestReproducibleWithSeed(t *testing.T) {
	a := newBikeShare(t, DefaultConfig(), 14)
	b := newBikeShare(t, DefaultConfig(), 14)

	for i := 0; i < 200; i++ {
		sa, _, _ := a.Step(action(i % Actions))
		sb, _, _ := b.Step(action(i % Actions))
		if !mat.Equal(sa.Observation, sb.Observation) ||
			sa.Reward != sb.Reward {
			t.Fatalf("identically seeded environments diverged at step %d", i)
		}
	}
}

func TestRender(t *testing.T) {
	c := DefaultConfig()
	c.Length, c.Width = 2, 2
	b := newBikeShare(t, c, 15)

	var buf bytes.Buffer
	if err := b.Render(&buf); err != nil {
		t.Fatal(err)
	}
	want := "2\t2\t\n10\t10\t\n\n"
	if buf.String() != want {
		t.Errorf("\n\twant(%q)\n\thave(%q)", want, buf.String())
	}

	filename := filepath.Join(t.TempDir(), "supply.png")
	if err := b.RenderImage(filename, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filename); err != nil {
		t.Error(err)
	}

	if !strings.HasPrefix(b.String(), "BikeShare | 2x2") {
		t.Errorf("unexpected string %q", b.String())
	}
}

func TestMetricsSaveLoad(t *testing.T) {
	c := DefaultConfig()
	c.ActionsPerEpisode = 4
	b := newBikeShare(t, c, 16)
	for i := 0; i < 12; i++ {
		b.Step(action(i % Actions))
	}

	filename := filepath.Join(t.TempDir(), "metrics.bin")
	if err := b.Metrics().Save(filename); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMetrics(filename)
	if err != nil {
		t.Fatal(err)
	}

	if !floats.Equal(m.UnserviceRatios, b.UnserviceRatios()) ||
		!floats.Equal(m.Expenses, b.Expenses()) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", b.Metrics(), m)
	}

	if _, err := LoadMetrics(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("loading a missing file should fail")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Length = 0 },
		func(c *Config) { c.ActionsPerEpisode = 0 },
		func(c *Config) { c.LowSupply = -1 },
		func(c *Config) { c.MaxRelocationCost = 0 },
		func(c *Config) { c.Discount = -0.1 },
	} {
		c := DefaultConfig()
		mutate(&c)
		if _, _, err := New(c, rand.NewSource(1)); err == nil {
			t.Errorf("config %+v should be rejected", c)
		}
	}

	if _, _, err := New(DefaultConfig(), nil); err == nil {
		t.Error("nil random source should be rejected")
	}
}
