package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/riveractivity/internal/app"
	"github.com/chrissnell/riveractivity/internal/constants"
	"github.com/chrissnell/riveractivity/internal/log"
	"github.com/chrissnell/riveractivity/pkg/config"
	"github.com/gosuri/uiprogress"
)

func main() {
	cfgFile := flag.String("config", "river.yaml", "Path to the YAML run configuration")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	workers := flag.Int("workers", 0, "Number of sections processed concurrently (overrides run.workers)")
	progress := flag.Bool("progress", false, "Show a per-section progress bar")
	flag.Parse()

	if *showVersion {
		fmt.Printf("riveractivity %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename, _ := filepath.Abs(*cfgFile)
	provider := config.NewYAMLProvider(filename)
	defer provider.Close()

	application := app.New(provider, log.GetSugaredLogger())
	application.Debug = *debug
	application.Workers = *workers

	if *progress {
		var bar *uiprogress.Bar
		uiprogress.Start()
		application.Progress = func(done, total int, sectionID string) {
			if bar == nil {
				bar = uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
			}
			bar.Set(done)
		}
	}

	run, err := application.Run(context.Background())
	if *progress {
		uiprogress.Stop()
	}
	if err != nil {
		log.Errorf("river activity run failed: %v", err)
		log.Sync()
		os.Exit(1)
	}
	log.Infof("run %s complete: %d sections in %v", run.ID, run.Result.Summary.Sections, run.Duration())
}
