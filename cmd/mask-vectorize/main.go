// mask-vectorize converts a folder of binary channel masks into shapefiles,
// one folder per detected year, and can fuse each year into a single layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrissnell/riveractivity/internal/constants"
	"github.com/chrissnell/riveractivity/internal/log"
	"github.com/chrissnell/riveractivity/internal/raster"
)

func main() {
	var (
		inDir       = flag.String("in", "", "Folder of raster masks (required)")
		outDir      = flag.String("out", "", "Output folder (required)")
		threshold   = flag.Int("threshold", 1, "Minimum grey level of a channel pixel")
		closing     = flag.Float64("closing", 0, "Morphological closing radius in pixels (0 disables)")
		crs         = flag.String("crs", "", "Projection written next to every shapefile when masks have no .prj")
		requireWF   = flag.Bool("require-world-file", false, "Fail on masks without a world file")
		fuse        = flag.Bool("fuse", false, "Fuse each year's polygons into <RIVER>_<YEAR>.shp")
		river       = flag.String("river", "", "River name used for fused files (default: detected from file names)")
		workers     = flag.Int("workers", 4, "Number of masks converted concurrently")
		debug       = flag.Bool("debug", false, "Turn on debugging output")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mask-vectorize %s\n", constants.Version)
		os.Exit(0)
	}

	if *inDir == "" || *outDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -in <masks> -out <folder>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *threshold < 1 || *threshold > 255 {
		fmt.Fprintf(os.Stderr, "Error: -threshold must be between 1 and 255\n")
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v := &Vectorizer{
		OutDir:  *outDir,
		CRS:     *crs,
		Workers: *workers,
		Mask: raster.MaskOptions{
			Threshold:        uint8(*threshold),
			ClosingRadius:    *closing,
			RequireWorldFile: *requireWF,
		},
		Logger: log.GetSugaredLogger(),
	}

	results, err := v.ConvertDir(ctx, *inDir)
	if err != nil {
		log.Errorf("vectorizing %s failed: %v", *inDir, err)
		log.Sync()
		os.Exit(1)
	}
	log.Infof("%d masks vectorized", len(results))

	if *fuse {
		fused, err := v.FuseYears(results, *river)
		if err != nil {
			log.Errorf("fusing years failed: %v", err)
			log.Sync()
			os.Exit(1)
		}
		for _, f := range fused {
			fmt.Println(f)
		}
	}
}
