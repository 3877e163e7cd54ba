// Package cli implements the gridsim command line interface
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rlgrid/gridsim/environment/envconfig"
	"github.com/spf13/cobra"
)

// Environment variables which override the default values of the root
// command's flags. They may be set in a .env file.
const (
	SeedEnv = "GRIDSIM_SEED"
	OutEnv  = "GRIDSIM_OUT"
)

// options are the flags shared by all subcommands
type options struct {
	seed     uint64
	out      string
	logLevel string
	envFile  string

	logger *log.Logger
}

// NewRootCommand returns the gridsim root command with all subcommands
// attached
func NewRootCommand() *cobra.Command {
	o := &options{}

	rootCommand := &cobra.Command{
		Use:   "gridsim",
		Short: "Grid environments for reinforcement learning",
		Long: "gridsim runs agents on the mouse-and-cheese gridworld and " +
			"the bike-share allocation grid",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}

	flags := rootCommand.PersistentFlags()
	flags.Uint64Var(&o.seed, "seed", 0, "Seed for all randomness "+
		"(default $"+SeedEnv+")")
	flags.StringVarP(&o.out, "out", "o", "results", "Directory to save "+
		"results in (default $"+OutEnv+")")
	flags.StringVar(&o.logLevel, "log-level", "info", "Logging level, "+
		"one of debug, info, warn, error")
	flags.StringVar(&o.envFile, "env-file", ".env", "File of environment "+
		"variables to load")

	rootCommand.AddCommand(newMouseCommand(o))
	rootCommand.AddCommand(newBikeShareCommand(o))
	rootCommand.AddCommand(newPlayCommand(o))
	return rootCommand
}

// setup loads the environment file, fills in flags that were not set
// on the command line and creates the logger
func (o *options) setup(cmd *cobra.Command) error {
	// A missing .env file is not an error
	if _, err := os.Stat(o.envFile); err == nil {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("could not load %v: %w", o.envFile, err)
		}
	}

	flags := cmd.Flags()
	if s, ok := os.LookupEnv(SeedEnv); ok && !flags.Changed("seed") {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %v: %w", SeedEnv, err)
		}
		o.seed = seed
	}
	if out, ok := os.LookupEnv(OutEnv); ok && !flags.Changed("out") {
		o.out = out
	}

	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.logLevel, err)
	}
	o.logger = log.New(cmd.ErrOrStderr())
	o.logger.SetLevel(level)
	return nil
}

// runDir creates and returns a new uniquely named directory under the
// output directory for a run of the named command
func (o *options) runDir(name string) (string, error) {
	dir := filepath.Join(o.out, name+"-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}
	return dir, nil
}

// loadEnvConfig loads the environment configuration in filename, or
// returns the default configuration of the named environment if
// filename is empty. The loaded configuration must describe the named
// environment.
func loadEnvConfig(filename string,
	name envconfig.EnvName) (envconfig.Config, error) {
	if filename == "" {
		return envconfig.NewConfig(name)
	}

	c, err := envconfig.Load(filename)
	if err != nil {
		return envconfig.Config{}, err
	}
	if c.Environment != name {
		return envconfig.Config{}, fmt.Errorf("%v configures environment "+
			"%v, want %v", filename, c.Environment, name)
	}
	return c, nil
}
