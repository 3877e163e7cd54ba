package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rlgrid/gridsim/environment/bikeshare"
	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/rlgrid/gridsim/environment/gridworld"
)

// clearEnv unsets the gridsim environment variables for the duration
// of the test
func clearEnv(t *testing.T) {
	for _, key := range []string{SeedEnv, OutEnv} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// execute runs the root command with args and returns its standard
// output
func execute(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetArgs(append(args, "--env-file",
		filepath.Join(t.TempDir(), "missing.env")))
	cmd.SetIn(strings.NewReader(in))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), err
}

// runDir returns the single run directory of the named command in out
func runDir(t *testing.T, out, name string) string {
	t.Helper()
	dirs, err := filepath.Glob(filepath.Join(out, name+"-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 {
		t.Fatalf("\n\twant(1 run directory)\n\thave(%v)", dirs)
	}
	return dirs[0]
}

func exists(t *testing.T, files ...string) {
	t.Helper()
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			t.Errorf("\n\twant(%v)\n\thave(%v)", file, err)
		}
	}
}

func TestPlay(t *testing.T) {
	clearEnv(t)
	const seed = 3

	c, err := envconfig.NewConfig(envconfig.MouseAndCheese)
	if err != nil {
		t.Fatal(err)
	}
	e, _, err := c.Create(seed)
	if err != nil {
		t.Fatal(err)
	}
	g := e.(*gridworld.GridWorld)
	agent, goal := g.Agent().Position(), g.Goal().Position()

	var moves []string
	steps := 0
	for x := agent.X; x != goal.X; steps++ {
		if x < goal.X {
			moves = append(moves, "4")
			x++
		} else {
			moves = append(moves, "3")
			x--
		}
	}
	for y := agent.Y; y != goal.Y; steps++ {
		if y < goal.Y {
			moves = append(moves, "2")
			y++
		} else {
			moves = append(moves, "1")
			y--
		}
	}

	out, err := execute(t, strings.Join(moves, "\n")+"\n", "play",
		"--seed", fmt.Sprint(seed))
	if err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("Congrats, the mouse found the cheese in %d steps",
		steps)
	if !strings.Contains(out, want) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", want, out)
	}
	if !strings.HasPrefix(out, playMenu) {
		t.Errorf("\n\twant(%v)\n\thave(%v)", playMenu, out)
	}
}

func TestPlayQuit(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "9\nup\nq\n1\n", "play")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`unknown move "9"`, `unknown move "up"`} {
		if !strings.Contains(out, want) {
			t.Errorf("\n\twant(%v)\n\thave(%v)", want, out)
		}
	}
	if strings.Contains(out, "Congrats") {
		t.Errorf("quitting should not finish the game: %v", out)
	}

	// Running out of input ends the game as well
	if _, err := execute(t, "", "play"); err != nil {
		t.Error(err)
	}
}

func TestMouse(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	grid := gridworld.DefaultConfig()
	grid.Length, grid.Width = 3, 3
	config := filepath.Join(t.TempDir(), "env.json")
	c := envconfig.Config{
		Environment: envconfig.MouseAndCheese,
		GridWorld:   &grid,
	}
	if err := c.Save(config); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, "", "mouse", "--out", out, "--config", config,
		"--steps", "2000", "--checkpoint", "500", "--runs", "2",
		"--demos", "1", "--log-level", "debug")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Game 0") {
		t.Errorf("\n\twant(demonstration game)\n\thave(%v)", stdout)
	}

	dir := runDir(t, out, "mouse")
	for _, run := range []string{"run0", "run1"} {
		exists(t,
			filepath.Join(dir, run, "qtable.bin"),
			filepath.Join(dir, run, "returns.bin"),
			filepath.Join(dir, run, "lengths.bin"),
			filepath.Join(dir, run, "qtable_checkpoint4.bin"),
		)
		name := filepath.Join(dir, run, "qtable_checkpoint5.bin")
		if _, err := os.Stat(name); err == nil {
			t.Errorf("unexpected checkpoint %v", name)
		}
	}
}

func TestMouseErrors(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	tests := [][]string{
		{"mouse", "--out", out, "--runs", "0"},
		{"mouse", "--out", out, "--epsilon", "2"},
		{"mouse", "--out", out, "--log-level", "loud"},
		{"mouse", "--out", out, "--config", filepath.Join(out, "none.json")},
		{"mouse", "extra"},
	}
	for _, args := range tests {
		if _, err := execute(t, "", args...); err == nil {
			t.Errorf("expected error for arguments %v", args)
		}
	}
}

func TestBikeShare(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	stdout, err := execute(t, "", "bikeshare", "--out", out, "--steps",
		"250", "--seed", "4")
	if err != nil {
		t.Fatal(err)
	}

	dir := runDir(t, out, "bikeshare")
	exists(t,
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "allocation.bin"),
		filepath.Join(dir, "returns.bin"),
		filepath.Join(dir, "unserviced.png"),
		filepath.Join(dir, "supply.png"),
	)

	m, err := bikeshare.LoadMetrics(filepath.Join(dir, "allocation.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.UnserviceRatios) != 2 || len(m.Expenses) != 2 {
		t.Errorf("\n\twant(2 episodes)\n\thave(%+v)", m)
	}

	// The final supply is rendered as 6 rows of 6 stations
	if rows := strings.Count(stdout, "\n"); rows != 7 {
		t.Errorf("\n\twant(%v)\n\thave(%v)", 7, rows)
	}
}

func TestBikeShareFixed(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	_, err := execute(t, "", "bikeshare", "--out", out, "--steps", "100",
		"--fixed", fmt.Sprint(bikeshare.Right), "--reset", "--differential",
		"0.1")
	if err != nil {
		t.Fatal(err)
	}
	dir := runDir(t, out, "bikeshare")
	m, err := bikeshare.LoadMetrics(filepath.Join(dir, "allocation.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.UnserviceRatios) != 1 {
		t.Errorf("\n\twant(1 episode)\n\thave(%+v)", m)
	}

	if _, err := execute(t, "", "bikeshare", "--out", out, "--fixed",
		"4"); err == nil {
		t.Error("expected error for an action outside the action spec")
	}
	if _, err := execute(t, "", "bikeshare", "--out", out,
		"--differential", "2"); err == nil {
		t.Error("expected error for an invalid average reward step size")
	}
}

func TestEnvFile(t *testing.T) {
	clearEnv(t)
	out := t.TempDir()

	envFile := filepath.Join(t.TempDir(), "test.env")
	data := fmt.Sprintf("%v=11\n%v=%v\n", SeedEnv, OutEnv, out)
	if err := os.WriteFile(envFile, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"bikeshare", "--steps", "10", "--env-file",
		envFile})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	runDir(t, out, "bikeshare")
	if seed := os.Getenv(SeedEnv); seed != "11" {
		t.Errorf("\n\twant(%v)\n\thave(%v)", 11, seed)
	}

	t.Setenv(SeedEnv, "eleven")
	if _, err := execute(t, "", "bikeshare", "--out", out); err == nil {
		t.Errorf("expected error for invalid %v", SeedEnv)
	}
}
