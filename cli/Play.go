package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/rlgrid/gridsim/environment/gridworld"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

const playMenu = "1. Up\n2. Down\n3. Left\n4. Right\nq. Quit\n"

func newPlayCommand(o *options) *cobra.Command {
	var envConfig string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play mouse-and-cheese in the console",
		Long: "Plays a game of mouse-and-cheese, reading moves from " +
			"standard input until the mouse finds the cheese",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, o, envConfig)
		},
	}
	cmd.Flags().StringVarP(&envConfig, "config", "c", "", "JSON "+
		"environment configuration, defaults to the 10x10 simplified grid")

	return cmd
}

func runPlay(cmd *cobra.Command, o *options, envConfig string) error {
	conf, err := loadEnvConfig(envConfig, envconfig.MouseAndCheese)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	e, step, err := conf.Create(o.seed)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	g := e.(*gridworld.GridWorld)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, playMenu)

	in := bufio.NewScanner(cmd.InOrStdin())
	for !step.Last() {
		if err := g.Render(out); err != nil {
			return fmt.Errorf("play: %w", err)
		}

		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}

		cmdText := strings.TrimSpace(in.Text())
		if cmdText == "q" {
			return nil
		}
		choice, err := strconv.Atoi(cmdText)
		if err != nil || choice < 1 || choice > gridworld.Actions {
			fmt.Fprintf(out, "unknown move %q\n%v", cmdText, playMenu)
			continue
		}

		action := mat.NewVecDense(1, []float64{float64(choice - 1)})
		if step, _, err = g.Step(action); err != nil {
			return fmt.Errorf("play: %w", err)
		}
		o.logger.Debug("moved", "step", step.Number, "reward", step.Reward)
	}

	if err := g.Render(out); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if g.Distance() == 0 {
		fmt.Fprintf(out, "Congrats, the mouse found the cheese in %d "+
			"steps\n", step.Number)
	} else {
		fmt.Fprintf(out, "Game over after %d steps (%v)\n", step.Number,
			step.EndType())
	}
	return nil
}
