package main

import (
	"flag"
	"fmt"

	"github.com/Faultbox/lightbaker/internal/logger"
)

func cmdInfo(args []string) error {
	cfg, rest, err := setup("info", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path, res, err := loadScene(cfg, rest)
	if err != nil {
		return err
	}
	lm, err := newLightmapper(cfg, res)
	if err != nil {
		return err
	}

	opaque, alpha := lm.Triangles()
	params := res.Scene.Params
	fmt.Printf("Scene:      %s\n", path)
	fmt.Printf("Triangles:  %d opaque, %d alpha\n", opaque, alpha)
	fmt.Printf("Atlas:      %dx%d, margin %d, %d islands\n", res.Atlas.Size, res.Atlas.Size, res.Atlas.Margin, len(res.Atlas.Rects))
	fmt.Printf("Density:    %.2f texels/unit\n", res.Density)
	fmt.Printf("Sampling:   %s (%d samples)\n", params.SamplingMode, params.SamplingMode.NumSamples())
	fmt.Printf("Bounces:    %d\n", params.IndirectBounces)
	fmt.Printf("Materials:  %d\n", len(res.Library.Materials))
	fmt.Printf("Memory:     ~%s\n", formatBytes(lm.MemoryUsage()))
	fmt.Println("Groups:")
	for _, g := range lm.Groups() {
		fmt.Printf("  %-20s %d lights\n", g.DisplayName(), len(g.Lights))
	}
	return nil
}

func cmdConfig(args []string) error {
	var write string
	cfg, _, err := setup("config", args, func(fs *flag.FlagSet) {
		fs.StringVar(&write, "write", "", "Write the configuration to this path")
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	if write != "" {
		if err := cfg.SaveTo(write); err != nil {
			return fmt.Errorf("writing %s: %w", write, err)
		}
		logger.Sugar.Infof("wrote %s", write)
		return nil
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
