package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chrissnell/riveractivity/internal/app"
	"github.com/chrissnell/riveractivity/internal/log"
	"github.com/chrissnell/riveractivity/pkg/config"
)

func main() {
	var (
		yamlFile = flag.String("yaml", "", "Path to YAML run configuration")
		debug    = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <river.yaml>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	fmt.Println("Configuration Test")
	fmt.Println("==================")
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)

	a := app.New(config.NewYAMLProvider(*yamlFile), log.GetSugaredLogger())
	p, err := a.Plan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Configuration and inputs are valid")
	fmt.Println()
	fmt.Printf("River:       %s\n", p.River)
	fmt.Printf("T1:          %s (year %s, %d features)\n", p.T1Label, year(p.YearT1), p.T1Features)
	fmt.Printf("T2:          %s (year %s, %d features)\n", p.T2Label, year(p.YearT2), p.T2Features)
	fmt.Printf("Sections:    %d\n", p.Sections)
	fmt.Printf("CRS:         %s\n", p.CRS)
	fmt.Printf("Output:      %s\n", p.OutputDir)
	if len(p.Writers) == 0 {
		fmt.Println("Writers:     none (results are only printed)")
	} else {
		fmt.Printf("Writers:     %s\n", strings.Join(p.Writers, ", "))
	}
}

func year(y int) string {
	if y == 0 {
		return "unknown"
	}
	return fmt.Sprint(y)
}
