package cmd

import (
	"context"
	"fmt"

	"github.com/go-drift/netimage/cmd/netimage/internal/config"
	"github.com/go-drift/netimage/pkg/netimage"
)

func init() {
	RegisterCommand(&Command{
		Name:  "warm",
		Short: "Prefetch a manifest of images into the caches",
		Long: `Warm fetches and decodes every target in a YAML manifest, filling the
decoded-bitmap cache and, when the manifest configures one, the disk
byte tier. Targets that share a display size are prefetched together.

A manifest looks like:

  scale: 2
  disk_dir: /var/cache/netimage
  targets:
    - url: https://cdn.example.com/p/1.jpg
      width: 56
      height: 56
    - url: https://cdn.example.com/p/2.jpg

Failures are reported per run; healthy targets are still warmed.`,
		Usage: "netimage warm <manifest.yaml>",
		Run:   runWarm,
	})
}

func runWarm(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("warm requires exactly one manifest path")
	}

	manifest, err := config.Load(args[0])
	if err != nil {
		return err
	}
	opts, err := manifest.Options()
	if err != nil {
		return err
	}
	loader, err := netimage.NewLoader(opts)
	if err != nil {
		return err
	}

	groups := make(map[netimage.Size][]netimage.Ref)
	for _, tgt := range manifest.Targets {
		size := netimage.Size{Width: tgt.Width, Height: tgt.Height}
		groups[size] = append(groups[size], netimage.Ref(tgt.URL))
	}

	ctx := context.Background()
	var firstErr error
	for size, refs := range groups {
		if err := loader.Prefetch(ctx, refs, size); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	stats := loader.Stats()
	fmt.Printf("Warmed %d of %d targets (%d fetches, %d failures)\n",
		stats.CacheLen, len(manifest.Targets), stats.Fetches, stats.Failures)
	fmt.Printf("Resident bitmaps: %s\n", formatBytes(stats.CacheCost))
	if manifest.DiskDir != "" {
		fmt.Printf("Disk tier: %s\n", manifest.DiskDir)
	}
	return firstErr
}
