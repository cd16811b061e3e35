package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/lightbaker/internal/bake"
	"github.com/Faultbox/lightbaker/internal/config"
	"github.com/Faultbox/lightbaker/internal/export"
	"github.com/Faultbox/lightbaker/internal/logger"
	"github.com/Faultbox/lightbaker/internal/scenefile"
)

const statusInterval = 500 * time.Millisecond

func cmdBake(args []string) error {
	cfg, rest, err := setup("bake", args, nil)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := lm.BakeAsync(ctx)
	log := logger.WithBake(status.ID)
	opaque, alpha := lm.Triangles()
	log.Info("baking",
		zap.String("scene", path),
		zap.Int("size", res.Atlas.Size),
		zap.Int("opaque", opaque),
		zap.Int("alpha", alpha),
		zap.Int("groups", len(lm.Groups())),
		zap.Int("threads", cfg.Bake.Threads),
		zap.String("memory", formatBytes(lm.MemoryUsage())))

	out, err := waitForBake(ctx, log, status)
	if err != nil {
		return err
	}

	m, err := export.Export(out, export.Meta{ID: status.ID, Scene: path, Elapsed: status.Elapsed()}, export.Options{
		Dir:      cfg.Output.Dir,
		PNG:      cfg.Output.PNG,
		TIFF:     cfg.Output.TIFF,
		E8:       cfg.Output.E8,
		Exposure: cfg.Output.Exposure,
	})
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	log.Info("bake finished",
		zap.Duration("elapsed", status.Elapsed()),
		zap.String("dir", cfg.Output.Dir),
		zap.Int("groups", len(m.Groups)),
		zap.Int("ambient_cubes", m.CubeCount))
	return nil
}

func newLightmapper(cfg *config.Config, res *scenefile.Result) (*bake.Lightmapper, error) {
	return bake.New(res.Library, res.Scene, res.Atlas, bake.Config{
		Threads:              cfg.Bake.Threads,
		Seed:                 cfg.Bake.Seed,
		Logger:               logger.Log,
		MaxAmbientCubes:      cfg.Bake.MaxAmbientCubes,
		AmbientRaysPerSide:   cfg.Bake.AmbientRaysPerSide,
		OcclusionRaysPerSide: cfg.Bake.OcclusionRaysPerSide,
	})
}

// waitForBake logs the status until the bake finishes.
func waitForBake(ctx context.Context, log *zap.Logger, status *bake.Status) (*bake.Output, error) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	phase := ""
	for {
		select {
		case <-status.Done():
			if err := status.Err(); err != nil {
				return nil, fmt.Errorf("bake %s: %w", status.ID, err)
			}
			return status.Output(), nil
		case <-ticker.C:
			if p := status.Phase(); p != phase {
				phase = p
				log.Info("phase", zap.String("name", p))
			}
			log.Debug(status.String(), zap.Duration("remaining", status.Remaining()))
		case <-ctx.Done():
			log.Warn("interrupted, waiting for workers")
			// The bake observes the same context and stops at the next batch.
			<-status.Done()
			if err := status.Err(); err != nil {
				return nil, fmt.Errorf("bake %s: %w", status.ID, err)
			}
			return status.Output(), nil
		}
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

