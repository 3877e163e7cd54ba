package cli

import (
	"fmt"
	"path/filepath"

	"github.com/rlgrid/gridsim/agent"
	"github.com/rlgrid/gridsim/agent/random"
	"github.com/rlgrid/gridsim/environment/bikeshare"
	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/rlgrid/gridsim/environment/wrappers"
	"github.com/rlgrid/gridsim/experiment"
	"github.com/rlgrid/gridsim/experiment/plotter"
	"github.com/rlgrid/gridsim/experiment/trackers"
	"github.com/spf13/cobra"
)

// bikeShareFlags are the flags of the bikeshare command
type bikeShareFlags struct {
	steps        uint
	fixed        int
	reset        bool
	cellSize     int
	differential float64
	envConfig    string
}

func newBikeShareCommand(o *options) *cobra.Command {
	var f bikeShareFlags

	cmd := &cobra.Command{
		Use:   "bikeshare",
		Short: "Run an operator on the bike-share allocation grid",
		Long: "Runs a random or fixed-direction operator on the bike-share " +
			"allocation grid, saving the unservice ratio and expense of " +
			"each episode and a heat map of the final supply",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBikeShare(cmd, o, f)
		},
	}

	flags := cmd.Flags()
	flags.UintVarP(&f.steps, "steps", "n", 1000, "Number of relocation "+
		"actions to take")
	flags.IntVar(&f.fixed, "fixed", -1, "Always redirect in this "+
		"direction (0 down, 1 up, 2 right, 3 left), negative for a "+
		"random operator")
	flags.BoolVar(&f.reset, "reset", false, "Reset the supply at the "+
		"start of every episode")
	flags.Float64Var(&f.differential, "differential", 0, "Track "+
		"differential rewards with this average reward step size, 0 "+
		"tracks the environmental rewards")
	flags.IntVar(&f.cellSize, "cell-size", 48, "Pixel size of each "+
		"station in the supply heat map")
	flags.StringVarP(&f.envConfig, "config", "c", "", "JSON environment "+
		"configuration, defaults to the 6x6 grid")

	return cmd
}

func runBikeShare(cmd *cobra.Command, o *options, f bikeShareFlags) error {
	envConf, err := loadEnvConfig(f.envConfig, envconfig.BikeShare)
	if err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}
	if f.differential != 0 {
		envConf.Differential = &envconfig.Differential{
			LearningRate: f.differential,
		}
	}

	var agentConf random.Config
	if f.fixed >= 0 {
		agentConf.Fixed = &f.fixed
	}
	expConf := experiment.Config{
		Type:       experiment.OnlineExp,
		MaxSteps:   f.steps,
		EnvConf:    envConf,
		AgentConf:  agent.NewTypedConfig(agentConf),
		Continuing: !f.reset,
	}

	dir, err := o.runDir("bikeshare")
	if err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}
	if err := expConf.Save(filepath.Join(dir, "config.json")); err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}

	exp, err := expConf.CreateExp(o.seed, nil, nil,
		experiment.WithLogger(o.logger))
	if err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}
	e := exp.Environment()
	differential, wrapped := e.(*wrappers.AverageReward)
	if wrapped {
		e = differential.Unwrap()
	}
	b, ok := e.(*bikeshare.BikeShare)
	if !ok {
		return fmt.Errorf("bikeshare: environment is %T, want "+
			"*bikeshare.BikeShare", e)
	}

	allocation := trackers.NewAllocation(b,
		filepath.Join(dir, "allocation.bin"))
	exp.Register(allocation)
	exp.Register(trackers.NewReturn(filepath.Join(dir, "returns.bin")))

	o.logger.Info("running operator", "dir", dir, "steps", f.steps,
		"seed", o.seed)
	if err := exp.Run(cmd.Context()); err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}
	if err := exp.Save(); err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}

	m := allocation.Metrics()
	o.logger.Info("allocation", "episodes", len(m.UnserviceRatios),
		"expense", m.Expense)
	if wrapped {
		o.logger.Info("differential", "averageReward",
			differential.AverageReward())
	}

	if len(m.UnserviceRatios) > 0 {
		err := plotter.Lines(
			plotter.Labels{
				Title: "Bike share",
				X:     "Episode",
				Y:     "Unservice ratio",
			},
			filepath.Join(dir, "unserviced.png"),
			plotter.Series{Name: "Unservice ratio", Data: m.UnserviceRatios},
		)
		if err != nil {
			return fmt.Errorf("bikeshare: %w", err)
		}
	}

	err = b.RenderImage(filepath.Join(dir, "supply.png"), f.cellSize)
	if err != nil {
		return fmt.Errorf("bikeshare: %w", err)
	}
	return b.Render(cmd.OutOrStdout())
}
