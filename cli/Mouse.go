package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/rlgrid/gridsim/agent/tabular/qlearning"
	env "github.com/rlgrid/gridsim/environment"
	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/rlgrid/gridsim/experiment"
	"github.com/rlgrid/gridsim/experiment/checkpointer"
	"github.com/rlgrid/gridsim/experiment/plotter"
	"github.com/rlgrid/gridsim/experiment/tracker"
	"github.com/rlgrid/gridsim/experiment/trackers"
	"github.com/rlgrid/gridsim/utils/progressbar"
	"github.com/spf13/cobra"
)

// demoSteps is the maximum number of steps in a demonstration game
const demoSteps = 100

// mouseFlags are the flags of the mouse command
type mouseFlags struct {
	steps      uint
	runs       int
	parallel   int
	checkpoint int
	window     int
	demos      int
	envConfig  string
	agent      qlearning.Config
}

func newMouseCommand(o *options) *cobra.Command {
	f := mouseFlags{agent: qlearning.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "mouse",
		Short: "Train a tabular Q-learning mouse to find the cheese",
		Long: "Trains a tabular Q-learning agent on the simplified " +
			"mouse-and-cheese gridworld, saving the episodic returns, " +
			"episode lengths and the learned Q-table of each run",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMouse(cmd, o, f)
		},
	}

	flags := cmd.Flags()
	flags.UintVarP(&f.steps, "steps", "n", 100_000, "Number of "+
		"environment steps to train for")
	flags.IntVar(&f.runs, "runs", 1, "Number of independent runs")
	flags.IntVar(&f.parallel, "parallel", 0, "Maximum number of runs "+
		"at once, 0 runs all at once")
	flags.IntVar(&f.checkpoint, "checkpoint", 0, "Save the Q-table "+
		"every this many steps, 0 disables checkpointing")
	flags.IntVar(&f.window, "window", 100, "Moving average window of "+
		"the plotted returns")
	flags.IntVar(&f.demos, "demos", 0, "Number of greedy games to "+
		"render after training")
	flags.StringVarP(&f.envConfig, "config", "c", "", "JSON environment "+
		"configuration, defaults to the 10x10 simplified grid")

	flags.Float64Var(&f.agent.Epsilon, "epsilon", f.agent.Epsilon,
		"Initial exploration probability")
	flags.Float64Var(&f.agent.EpsilonDecay, "epsilon-decay",
		f.agent.EpsilonDecay, "Multiplicative decay of ε per action")
	flags.Float64Var(&f.agent.EpsilonMin, "epsilon-min",
		f.agent.EpsilonMin, "Minimum exploration probability")
	flags.Float64Var(&f.agent.LearningRate, "learning-rate",
		f.agent.LearningRate, "Q-learning step size")
	flags.Float64Var(&f.agent.Gamma, "gamma", f.agent.Gamma,
		"Q-learning discount factor")

	return cmd
}

func runMouse(cmd *cobra.Command, o *options, f mouseFlags) error {
	if f.runs <= 0 {
		return fmt.Errorf("mouse: runs must be positive, have %d", f.runs)
	}
	if err := f.agent.Validate(); err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	envConf, err := loadEnvConfig(f.envConfig, envconfig.MouseAndCheese)
	if err != nil {
		return fmt.Errorf("mouse: %w", err)
	}

	dir, err := o.runDir("mouse")
	if err != nil {
		return fmt.Errorf("mouse: %w", err)
	}
	o.logger.Info("training", "dir", dir, "runs", f.runs, "steps", f.steps,
		"seed", o.seed)

	// Only a single run draws a progress bar
	progress := io.Discard
	if f.runs == 1 {
		progress = cmd.ErrOrStderr()
	}

	err = experiment.RunParallel(cmd.Context(), f.runs, f.parallel,
		func(ctx context.Context, i int) error {
			runDir := filepath.Join(dir, fmt.Sprintf("run%d", i))
			if err := os.MkdirAll(runDir, 0o755); err != nil {
				return err
			}

			var demo io.Writer = io.Discard
			if i == 0 {
				demo = cmd.OutOrStdout()
			}
			return trainMouse(ctx, envConf, f, o.seed+uint64(i), runDir,
				o.logger.With("run", i), progress, demo)
		})
	if err != nil {
		return fmt.Errorf("mouse: %w", err)
	}

	o.logger.Info("training complete", "dir", dir)
	return nil
}

// trainMouse trains a single Q-learning agent and saves its data in
// dir
func trainMouse(ctx context.Context, envConf envconfig.Config,
	f mouseFlags, seed uint64, dir string, logger *log.Logger, progress,
	demo io.Writer) error {
	e, _, err := envConf.Create(seed)
	if err != nil {
		return err
	}
	q, err := qlearning.New(e, f.agent, seed)
	if err != nil {
		return err
	}

	returns := trackers.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))
	t := []tracker.Tracker{returns, lengths}

	var c []checkpointer.Checkpointer
	if f.checkpoint > 0 {
		nStep, err := checkpointer.NewNStep(f.checkpoint, q,
			checkpointer.FilenameEnumerator(0,
				filepath.Join(dir, "qtable_checkpoint"), ".bin"))
		if err != nil {
			return err
		}
		c = append(c, nStep)
	}

	exp := experiment.NewOnline(e, q, f.steps, t, c,
		experiment.WithLogger(logger))

	bar := progressbar.NewManualProgressBar(progress, "training", 40,
		int(f.steps))
	for ended := false; !ended; {
		if err := ctx.Err(); err != nil {
			return err
		}

		prev := exp.Steps()
		if ended, err = exp.RunEpisode(); err != nil {
			return err
		}
		for s := prev; s < exp.Steps(); s++ {
			bar.Increment()
		}
		bar.Display()
	}
	logger.Info("run complete", "episodes", exp.Episodes(),
		"epsilon", q.Epsilon())

	if err := exp.Save(); err != nil {
		return err
	}
	if err := q.Save(filepath.Join(dir, "qtable.bin")); err != nil {
		return err
	}

	if data := returns.Data(); len(data) > 0 {
		err := plotter.Lines(
			plotter.Labels{
				Title: "Mouse and cheese",
				X:     "Episode",
				Y:     "Return",
			},
			filepath.Join(dir, "returns.png"),
			plotter.Series{Name: "Return", Data: plotter.Smooth(data,
				f.window)},
		)
		if err != nil {
			return err
		}
	}

	return playGreedy(e, q, f.demos, demo)
}

// playGreedy renders games played by the greedy policy of q to out
func playGreedy(e env.Environment, q *qlearning.QLearning, games int,
	out io.Writer) error {
	q.Eval()
	defer q.Train()

	for game := 0; game < games; game++ {
		fmt.Fprintf(out, "----------\nGame %d\n----------\n", game)

		step, err := e.Reset()
		if err != nil {
			return err
		}
		if err := e.Render(out); err != nil {
			return err
		}
		for i := 0; i < demoSteps && !step.Last(); i++ {
			step, _, err = e.Step(q.SelectAction(step))
			if err != nil {
				return err
			}
			if err := e.Render(out); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "Game over after %d steps (%v)\n", step.Number,
			step.EndType())
	}
	return nil
}
