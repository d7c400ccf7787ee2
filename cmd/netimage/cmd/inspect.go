package cmd

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-drift/netimage/pkg/decode"
	"github.com/go-drift/netimage/pkg/fetch"
)

func init() {
	RegisterCommand(&Command{
		Name:  "inspect",
		Short: "Fetch one image and report how it decodes",
		Long: `Inspect fetches a single resource, probes its header, decodes it at the
requested display size and reports the source format, the decoded
dimensions and the resident memory of the bitmap.

Without --width and --height the image decodes at native resolution.`,
		Usage: "netimage inspect <url> [--width W] [--height H] [--scale S] [--quality Q]",
		Run:   runInspect,
	})
}

// InspectOptions configure a single inspection.
type InspectOptions struct {
	URL     string
	Width   float64
	Height  float64
	Scale   float64
	Quality decode.Quality
}

func runInspect(args []string) error {
	opts := InspectOptions{Scale: 1}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--width":
			if i+1 >= len(args) {
				return fmt.Errorf("--width requires a value")
			}
			i++
			v, err := parseDimension(arg, args[i])
			if err != nil {
				return err
			}
			opts.Width = v
		case "--height":
			if i+1 >= len(args) {
				return fmt.Errorf("--height requires a value")
			}
			i++
			v, err := parseDimension(arg, args[i])
			if err != nil {
				return err
			}
			opts.Height = v
		case "--scale":
			if i+1 >= len(args) {
				return fmt.Errorf("--scale requires a value")
			}
			i++
			v, err := parseDimension(arg, args[i])
			if err != nil {
				return err
			}
			opts.Scale = v
		case "--quality":
			if i+1 >= len(args) {
				return fmt.Errorf("--quality requires a value")
			}
			i++
			q, err := parseQualityFlag(args[i])
			if err != nil {
				return err
			}
			opts.Quality = q
		default:
			if strings.HasPrefix(arg, "--") {
				return fmt.Errorf("unknown flag: %s", arg)
			}
			if opts.URL != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			opts.URL = arg
		}
	}
	if opts.URL == "" {
		return fmt.Errorf("inspect requires a url")
	}

	return Inspect(context.Background(), opts)
}

// Inspect fetches, probes and decodes one resource, printing the report.
func Inspect(ctx context.Context, opts InspectOptions) error {
	getter := fetch.NewHTTPGetter(0, 0)
	data, err := getter.Get(ctx, opts.URL)
	if err != nil {
		return err
	}

	cfg, format, err := decode.Config(data)
	if err != nil {
		return err
	}
	fmt.Printf("Source:  %s, %dx%d, %s encoded\n",
		format, cfg.Width, cfg.Height, formatBytes(int64(len(data))))

	edge := 0
	if opts.Width > 0 || opts.Height > 0 {
		logical := math.Max(opts.Width, opts.Height)
		scale := opts.Scale
		if scale <= 0 {
			scale = 1
		}
		edge = int(math.Ceil(logical * scale))
	}

	img, err := decode.Decode(data, decode.Options{LongestEdge: edge, Quality: opts.Quality})
	if err != nil {
		return err
	}

	b := img.Bounds()
	fmt.Printf("Decoded: %dx%d RGBA, %s resident\n", b.Dx(), b.Dy(), formatBytes(decode.Cost(img)))
	if edge > 0 {
		fmt.Printf("Target:  longest edge %d px (scale %g)\n", edge, opts.Scale)
	}
	return nil
}

func parseDimension(flag, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%s requires a non-negative number, got %q", flag, val)
	}
	return f, nil
}

func parseQualityFlag(val string) (decode.Quality, error) {
	switch strings.ToLower(val) {
	case "high":
		return decode.QualityHigh, nil
	case "medium":
		return decode.QualityMedium, nil
	case "low":
		return decode.QualityLow, nil
	default:
		return 0, fmt.Errorf("--quality must be high, medium or low, got %q", val)
	}
}
