package config

import "flag"

// Flags holds the command-line overrides shared by the subcommands.
type Flags struct {
	Config  string
	Debug   bool
	Threads int
	Fast    bool
	Size    int
	Out     string
	Seed    int64
}

// RegisterFlags defines the override flags on fs. Call fs.Parse afterwards.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Threads, "threads", 0, "Worker threads (0 keeps the configured value)")
	fs.BoolVar(&f.Fast, "fast", false, "Fast preview bake")
	fs.IntVar(&f.Size, "size", 0, "Lightmap size in texels")
	fs.StringVar(&f.Out, "out", "", "Output directory")
	fs.Int64Var(&f.Seed, "seed", -1, "Random seed (-1 keeps the configured value)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Threads > 0 {
		cfg.Bake.Threads = f.Threads
	}
	if f.Fast {
		cfg.Bake.Params.FastMode = true
	}
	if f.Size > 0 {
		cfg.Bake.Size = f.Size
	}
	if f.Out != "" {
		cfg.Output.Dir = f.Out
	}
	if f.Seed >= 0 {
		cfg.Bake.Seed = uint64(f.Seed)
	}
}
