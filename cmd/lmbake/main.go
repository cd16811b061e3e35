// lmbake is a CLI for baking lightmaps from scene files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/lightbaker/internal/config"
	"github.com/Faultbox/lightbaker/internal/logger"
	"github.com/Faultbox/lightbaker/internal/scenefile"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "bake":
		err = cmdBake(args)
	case "info":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`lmbake - offline lightmap baker

Usage:
  lmbake <command> [options]

Commands:
  bake [options] <scene.yaml>   Bake lightmaps and write them to the output dir
  info [options] <scene.yaml>   Show scene, atlas and memory estimates
  config [-write path]          Print or write the effective configuration

Options:
  -config path   Config file (default ./config.yaml or the user config dir)
  -threads n     Worker threads
  -size n        Lightmap size in texels
  -fast          Fast preview bake
  -seed n        Random seed
  -out dir       Output directory
  -debug         Debug logging

Examples:
  lmbake bake -size 1024 room.yaml
  lmbake info room.yaml
  lmbake config -write config.yaml`)
}

// setup parses the shared flags, loads the config and initializes the
// logger. It returns the remaining arguments.
func setup(name string, args []string, extra func(*flag.FlagSet)) (*config.Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, err
	}

	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: os.Stderr,
	}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, fs.Args(), nil
}

// loadScene reads and builds the scene file named by the single positional
// argument.
func loadScene(cfg *config.Config, args []string) (string, *scenefile.Result, error) {
	if len(args) != 1 {
		return "", nil, fmt.Errorf("expected one scene file, got %d arguments", len(args))
	}
	f, err := scenefile.Load(args[0])
	if err != nil {
		return "", nil, err
	}
	res, err := f.Build(scenefile.Options{
		Size:   cfg.Bake.Size,
		Margin: cfg.Bake.Margin,
		Params: cfg.Bake.Params,
	})
	if err != nil {
		return "", nil, fmt.Errorf("building %s: %w", args[0], err)
	}
	return args[0], res, nil
}
